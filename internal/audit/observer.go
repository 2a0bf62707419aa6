package audit

import (
	"log/slog"
	"time"
)

// ActionType labels the unit of work an event reports on, following the
// changelog protocol vocabulary.
type ActionType string

const (
	ActionQueryAnalysis  ActionType = "query_analysis"
	ActionExtraction     ActionType = "data_extraction"
	ActionCardinality    ActionType = "cardinality_estimation"
	ActionJoinOrdering   ActionType = "join_optimization"
	ActionIndexAdvice    ActionType = "index_recommendation"
	ActionImpactEstimate ActionType = "index_impact_estimation"
	ActionReport         ActionType = "report_generation"
)

// Event is a human-readable summary of one completed unit of pipeline
// work. It carries no computational results; observers must not feed
// anything back into the pipeline.
type Event struct {
	QueryID       string
	Action        ActionType
	Summary       string
	PreviousState string
	CurrentState  string
	Details       map[string]any
	Timestamp     time.Time
}

// Observer receives an event after each unit of work. Implementations
// may be no-ops; the pipeline never depends on their behavior.
type Observer interface {
	OnEvent(event Event)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OnEvent(Event) {}

// LoggingObserver forwards events to structured logging.
type LoggingObserver struct {
	logger *slog.Logger
}

func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements Observer. Each event becomes one log record with
// structured fields for filtering.
func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Info("pipeline_audit",
		"query_id", event.QueryID,
		"action", string(event.Action),
		"summary", event.Summary,
		"previous_state", event.PreviousState,
		"current_state", event.CurrentState,
		"details", event.Details,
	)
}

// Observers fans one event out to several observers.
type Observers []Observer

func (os Observers) OnEvent(event Event) {
	for _, o := range os {
		o.OnEvent(event)
	}
}
