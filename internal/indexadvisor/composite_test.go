package indexadvisor

import (
	"reflect"
	"testing"
)

func TestRecommendCompositePrefixTuples(t *testing.T) {
	groups := [][]string{
		{"users.status", "users.created_at", "users.region"},
	}

	recs := RecommendComposite("q1", groups, testLogger())

	// One tuple per prefix length 2..3.
	if len(recs) != 2 {
		t.Fatalf("Expected 2 composite recommendations, got %d", len(recs))
	}

	// Sorted descending by score, so the widest tuple comes first.
	if recs[0].Score != 150 || len(recs[0].Columns) != 3 {
		t.Errorf("Expected 3-column tuple with score 150 first, got %+v", recs[0])
	}
	if recs[1].Score != 100 || len(recs[1].Columns) != 2 {
		t.Errorf("Expected 2-column tuple with score 100 second, got %+v", recs[1])
	}

	want := []string{"users.status", "users.created_at"}
	if !reflect.DeepEqual(recs[1].Columns, want) {
		t.Errorf("Expected predicate-order columns %v, got %v", want, recs[1].Columns)
	}
	if recs[1].IndexName != "idx_users_comp_status_created_at" {
		t.Errorf("Unexpected index name: %q", recs[1].IndexName)
	}
	if recs[1].DDL != "CREATE INDEX idx_users_comp_status_created_at ON users(status, created_at);" {
		t.Errorf("Unexpected DDL: %q", recs[1].DDL)
	}
	if !recs[0].Composite || !recs[1].Composite {
		t.Error("Expected composite flag set")
	}
}

func TestRecommendCompositeSkipsMixedTables(t *testing.T) {
	groups := [][]string{
		{"users.status", "orders.total"},
		{"status", "created_at"},
		{"users.status"},
	}

	if recs := RecommendComposite("q2", groups, testLogger()); len(recs) != 0 {
		t.Errorf("Expected no recommendations, got %v", recs)
	}
}

func TestRecommendCompositeDeduplicates(t *testing.T) {
	groups := [][]string{
		{"users.a", "users.b"},
		{"users.a", "users.b"},
	}

	recs := RecommendComposite("q3", groups, testLogger())
	if len(recs) != 1 {
		t.Errorf("Expected duplicate tuples collapsed to 1, got %d", len(recs))
	}
}
