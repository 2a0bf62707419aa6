package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// multiHandler forwards log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Setup initializes the logger and returns a cleanup function. Console
// output always; when SEQ_URL is set, records also ship to Seq.
func Setup() (*slog.Logger, func()) {
	level := slog.LevelInfo
	if os.Getenv("LOG_DEBUG") != "" {
		level = slog.LevelDebug
	}

	consoleHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	seqURL := os.Getenv("SEQ_URL")
	if seqURL == "" {
		logger := slog.New(consoleHandler).With("service", "query-advisor")
		return logger, func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		seqURL,
		slogseq.WithBatchSize(10),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(&slog.HandlerOptions{Level: level}),
	)
	if seqHandler == nil {
		logger := slog.New(consoleHandler).With("service", "query-advisor")
		return logger, func() {}
	}

	multi := &multiHandler{handlers: []slog.Handler{consoleHandler, seqHandler}}
	logger := slog.New(multi).With("service", "query-advisor")
	return logger, func() { seqHandler.Close() }
}
