package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leengari/query-advisor/internal/audit"
	"github.com/leengari/query-advisor/internal/indexadvisor"
	"github.com/leengari/query-advisor/internal/report"
	"github.com/leengari/query-advisor/internal/stats"
)

const testQuery = `SELECT c.name, o.total
FROM customers c
JOIN orders o ON c.id = o.customer_id
WHERE c.country = 'DE' AND o.total > 100
ORDER BY o.total DESC`

type recordingObserver struct {
	events []audit.Event
}

func (r *recordingObserver) OnEvent(event audit.Event) {
	r.events = append(r.events, event)
}

func testPipeline(obs audit.Observer) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(stats.Default(), obs, logger)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	p := testPipeline(nil)
	a := p.Analyze(context.Background(), Handle{ID: "q1", SQL: testQuery}, nil)

	if a.QueryID != "q1" {
		t.Errorf("Expected query id q1, got %q", a.QueryID)
	}

	wantTables := []string{"customers", "orders"}
	if len(a.Dependencies.Tables) != 2 {
		t.Fatalf("Expected tables %v, got %v", wantTables, a.Dependencies.Tables)
	}
	for i, want := range wantTables {
		if a.Dependencies.Tables[i] != want {
			t.Errorf("tables[%d]: expected %q, got %q", i, want, a.Dependencies.Tables[i])
		}
	}

	if len(a.Plan.Steps) != 1 {
		t.Fatalf("Expected 1 join step, got %d", len(a.Plan.Steps))
	}
	if a.Plan.Steps[0].RightTable != "orders" && a.Plan.Steps[0].RightTable != "customers" {
		t.Errorf("Unexpected right input %q", a.Plan.Steps[0].RightTable)
	}

	// Filtered scans: customers gets the country equality, orders the
	// range predicate.
	if got := a.ScanEstimates["customers"]; got != 100_000 {
		t.Errorf("Expected customers scan estimate 100000, got %d", got)
	}
	if got := a.ScanEstimates["orders"]; got != 250_000 {
		t.Errorf("Expected orders scan estimate 250000, got %d", got)
	}

	// Scans plus join steps all carry estimates.
	if len(a.Estimates) != 3 {
		t.Errorf("Expected 3 plan estimates, got %d", len(a.Estimates))
	}

	// o.total appears in WHERE and ORDER BY: 30 + 20 = 50.
	var found bool
	for _, rec := range a.SingleColumn {
		if len(rec.Columns) == 1 && rec.Columns[0] == "orders.total" {
			found = true
			if rec.Score != 50 {
				t.Errorf("Expected orders.total score 50, got %d", rec.Score)
			}
		}
	}
	if !found {
		t.Errorf("Expected a recommendation for orders.total, got %v", a.SingleColumn)
	}

	if len(a.Assessments) != len(a.SingleColumn)+len(a.Composite) {
		t.Errorf("Expected one assessment per recommendation, got %d for %d",
			len(a.Assessments), len(a.SingleColumn)+len(a.Composite))
	}
}

func TestAnalyzeGeneratesQueryID(t *testing.T) {
	p := testPipeline(nil)
	a := p.Analyze(context.Background(), Handle{SQL: "SELECT * FROM users WHERE id = 1"}, nil)

	if a.QueryID == "" {
		t.Error("Expected generated query id")
	}
}

func TestAnalyzeSingleTableQuery(t *testing.T) {
	p := testPipeline(nil)
	a := p.Analyze(context.Background(), Handle{ID: "q2", SQL: "SELECT * FROM customers WHERE id = 7"}, nil)

	if len(a.Plan.Steps) != 0 {
		t.Errorf("Expected empty join plan, got %d steps", len(a.Plan.Steps))
	}
	if got := a.ScanEstimates["customers"]; got != 1 {
		t.Errorf("Expected unique-key scan estimate 1, got %d", got)
	}
}

func TestAnalyzeNotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}
	p := testPipeline(obs)
	p.Analyze(context.Background(), Handle{ID: "q3", SQL: testQuery}, nil)

	if len(obs.events) == 0 {
		t.Fatal("Expected audit events")
	}

	actions := map[audit.ActionType]bool{}
	for _, e := range obs.events {
		if e.QueryID != "q3" {
			t.Errorf("Expected query id q3 on event, got %q", e.QueryID)
		}
		if e.Timestamp.IsZero() {
			t.Error("Expected timestamp on event")
		}
		actions[e.Action] = true
	}
	for _, want := range []audit.ActionType{
		audit.ActionQueryAnalysis, audit.ActionExtraction, audit.ActionCardinality,
		audit.ActionJoinOrdering, audit.ActionIndexAdvice, audit.ActionImpactEstimate,
	} {
		if !actions[want] {
			t.Errorf("Expected an event with action %q", want)
		}
	}
}

func TestAnalyzeWithProfile(t *testing.T) {
	p := testPipeline(nil)
	profile := &indexadvisor.QueryProfile{Frequency: stats.FrequencyHigh, CostWithoutIndex: 200}
	a := p.Analyze(context.Background(), Handle{ID: "q4", SQL: testQuery}, profile)

	for _, as := range a.Assessments {
		if as.Impact.Benefit <= as.Recommendation.Score {
			t.Errorf("Expected high-frequency profile to scale benefit above score %d, got %d",
				as.Recommendation.Score, as.Impact.Benefit)
		}
	}
}

func TestPublishWritesAllReports(t *testing.T) {
	obs := &recordingObserver{}
	p := testPipeline(obs)
	ctx := context.Background()
	a := p.Analyze(ctx, Handle{ID: "q5", SQL: testQuery}, nil)

	dir := t.TempDir()
	sink, err := report.NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := p.Publish(ctx, a, nil, sink); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, kind := range report.AllKinds() {
		path := filepath.Join(dir, "q5_"+string(kind)+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Expected %s report: %v", kind, err)
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Errorf("%s report is not valid JSON: %v", kind, err)
			continue
		}
		if payload["query_id"] != "q5" {
			t.Errorf("%s report: expected query_id q5, got %v", kind, payload["query_id"])
		}
		if payload["method"] == "" || payload["method"] == nil {
			t.Errorf("%s report: expected method field", kind)
		}
	}

	var reported bool
	for _, e := range obs.events {
		if e.Action == audit.ActionReport {
			reported = true
		}
	}
	if !reported {
		t.Error("Expected a report_generation audit event")
	}
}

func TestBuildReportUnknownKind(t *testing.T) {
	p := testPipeline(nil)
	a := p.Analyze(context.Background(), Handle{ID: "q6", SQL: testQuery}, nil)

	if _, err := BuildReport(a, report.Kind("bogus")); err == nil {
		t.Error("Expected error for unknown report kind")
	}
}
