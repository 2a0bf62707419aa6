package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	payload := map[string]any{"query_id": "q1", "value": 5000}
	if err := sink.Write(context.Background(), "q1", KindCardinality, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, "q1_cardinality_estimation.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected report file at %s: %v", path, err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Report file is not valid JSON: %v", err)
	}
	if got["query_id"] != "q1" {
		t.Errorf("Expected query_id q1, got %v", got["query_id"])
	}
}

func TestFileSinkCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	if _, err := NewFileSink(dir); err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected directory created: %v", err)
	}
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	payload := map[string]any{"query_id": "q1", "score": 50}
	if err := sink.Write(ctx, "q1", KindSingleColumn, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := sink.Read(ctx, "q1", KindSingleColumn)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Stored payload is not valid JSON: %v", err)
	}
	if got["query_id"] != "q1" {
		t.Errorf("Expected query_id q1, got %v", got["query_id"])
	}
}

func TestSQLiteSinkReplacesOnRerun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	sink, err := OpenSQLiteSink(path)
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Write(ctx, "q1", KindJoinPlan, map[string]any{"run": 1}); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := sink.Write(ctx, "q1", KindJoinPlan, map[string]any{"run": 2}); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	data, err := sink.Read(ctx, "q1", KindJoinPlan)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var got map[string]float64
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["run"] != 2 {
		t.Errorf("Expected second write to replace the first, got run=%v", got["run"])
	}
}
