package audit

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ChangelogObserver appends one JSON line per event to a changelog file,
// keeping an audit trail separate from operational logging. The file is
// opened in append mode so runs accumulate.
type ChangelogObserver struct {
	logger *zap.Logger
}

// NewChangelogObserver opens (or creates) the changelog file at path.
// The returned close function flushes buffered entries.
func NewChangelogObserver(path string) (*ChangelogObserver, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open changelog %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(f),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)

	closeFn := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return &ChangelogObserver{logger: logger}, closeFn, nil
}

// OnEvent implements Observer.
func (co *ChangelogObserver) OnEvent(event Event) {
	co.logger.Info(event.Summary,
		zap.String("query_id", event.QueryID),
		zap.String("action_type", string(event.Action)),
		zap.String("previous_state", event.PreviousState),
		zap.String("current_state", event.CurrentState),
		zap.Time("event_time", event.Timestamp),
		zap.Any("details", event.Details),
	)
}
