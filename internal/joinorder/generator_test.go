package joinorder

import (
	"io"
	"log/slog"
	"testing"

	"github.com/leengari/query-advisor/internal/cardinality"
	"github.com/leengari/query-advisor/internal/depgraph"
	"github.com/leengari/query-advisor/internal/sqltext"
	"github.com/leengari/query-advisor/internal/stats"
)

func testGenerator() (*Generator, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	est := cardinality.NewEstimator(stats.Default(), logger)
	return NewGenerator(est, logger), logger
}

func analyze(t *testing.T, query string, logger *slog.Logger) *depgraph.Analysis {
	t.Helper()
	return depgraph.Analyze("test-query", sqltext.Segment(query), logger)
}

// naiveCrossProduct is the upper bound no plan's step estimates may
// collectively exceed: the product of every base table cardinality.
func naiveCrossProduct(g *Generator, tables []string) float64 {
	product := 1.0
	for _, table := range tables {
		product *= float64(g.est.TableCardinality(table))
	}
	return product
}

func assertStepRowsWithinCrossProduct(t *testing.T, g *Generator, plan *Plan, tables []string) {
	t.Helper()
	var sum float64
	for _, step := range plan.Steps {
		sum += float64(step.EstimatedRows)
	}
	if limit := naiveCrossProduct(g, tables); sum > limit {
		t.Errorf("Sum of step estimates %v exceeds naive cross product %v", sum, limit)
	}
}

func TestGenerateSingleTable(t *testing.T) {
	g, logger := testGenerator()
	dep := analyze(t, "SELECT * FROM users WHERE id = 1", logger)

	plan := g.Generate("q1", dep, map[string]int64{"users": 42})

	if len(plan.Steps) != 0 {
		t.Errorf("Expected empty plan, got %d steps", len(plan.Steps))
	}
	if plan.FinalRows != 42 {
		t.Errorf("Expected final rows 42, got %d", plan.FinalRows)
	}
	if plan.TotalCost != 0 {
		t.Errorf("Expected zero cost, got %v", plan.TotalCost)
	}
}

func TestGenerateStartsAtLowestCardinality(t *testing.T) {
	g, logger := testGenerator()
	dep := analyze(t, "SELECT * FROM customers c JOIN orders o ON c.id = o.customer_id", logger)

	plan := g.Generate("q2", dep, nil)

	if len(plan.Steps) != 1 {
		t.Fatalf("Expected 1 step, got %d", len(plan.Steps))
	}
	if plan.Steps[0].LeftInput != "customers" {
		t.Errorf("Expected to start at customers (smaller table), got %q", plan.Steps[0].LeftInput)
	}
	if plan.Steps[0].RightTable != "orders" {
		t.Errorf("Expected orders as right input, got %q", plan.Steps[0].RightTable)
	}
	if plan.Steps[0].OutputName != "(customers_orders)" {
		t.Errorf("Expected output name (customers_orders), got %q", plan.Steps[0].OutputName)
	}
}

func TestGenerateScanEstimatesOverrideBase(t *testing.T) {
	g, logger := testGenerator()
	dep := analyze(t, "SELECT * FROM customers c JOIN orders o ON c.id = o.customer_id", logger)

	// A heavy filter on orders makes it the cheaper starting point.
	plan := g.Generate("q3", dep, map[string]int64{"orders": 10})

	if plan.Steps[0].LeftInput != "orders" {
		t.Errorf("Expected filtered orders as start table, got %q", plan.Steps[0].LeftInput)
	}
}

func TestGenerateTreePlan(t *testing.T) {
	g, logger := testGenerator()
	dep := analyze(t, "SELECT * FROM x JOIN y ON x.id = y.x_id JOIN z ON y.id = z.y_id", logger)

	plan := g.Generate("q4", dep, nil)

	if len(plan.Steps) != 2 {
		t.Fatalf("Expected N-1 = 2 steps, got %d", len(plan.Steps))
	}
	rightSeen := map[string]int{}
	for i, step := range plan.Steps {
		if step.Step != i+1 {
			t.Errorf("Step %d: expected sequence number %d, got %d", i, i+1, step.Step)
		}
		if step.Fallback {
			t.Errorf("Step %d: unexpected fallback on connected graph", i)
		}
		if step.EstimatedRows < 1 {
			t.Errorf("Step %d: estimated rows below floor: %d", i, step.EstimatedRows)
		}
		rightSeen[step.RightTable]++
	}
	for table, n := range rightSeen {
		if n != 1 {
			t.Errorf("Table %s appears %d times as right input, expected once", table, n)
		}
	}
	if plan.TotalCost <= 0 {
		t.Errorf("Expected positive total cost, got %v", plan.TotalCost)
	}
	assertStepRowsWithinCrossProduct(t, g, plan, dep.Tables)
}

func TestGenerateDisconnectedPairs(t *testing.T) {
	g, logger := testGenerator()
	dep := analyze(t, "SELECT * FROM a, b, c, d WHERE a.id = b.a_id AND c.id = d.c_id", logger)

	plan := g.Generate("q5", dep, nil)

	if len(plan.Steps) != 3 {
		t.Fatalf("Expected 3 steps (2 joins + 1 bridge), got %d", len(plan.Steps))
	}
	var fallbacks int
	for _, step := range plan.Steps {
		if step.Fallback {
			fallbacks++
			if step.Kind != depgraph.Cross {
				t.Errorf("Fallback step has kind %v, expected CROSS", step.Kind)
			}
			if step.Condition != "CROSS JOIN (fallback)" {
				t.Errorf("Fallback step condition %q", step.Condition)
			}
		}
	}
	if fallbacks != 1 {
		t.Errorf("Expected exactly 1 fallback bridge, got %d", fallbacks)
	}
	if plan.Steps[0].Fallback {
		t.Error("Expected first step to use the a-b join edge, not a fallback")
	}
	if plan.Steps[len(plan.Steps)-1].Fallback {
		t.Error("Expected greedy traversal to resume after the bridge")
	}
	assertStepRowsWithinCrossProduct(t, g, plan, dep.Tables)
}

func TestGenerateFinalRowsMatchLastStep(t *testing.T) {
	g, logger := testGenerator()
	dep := analyze(t, "SELECT * FROM customers c JOIN orders o ON c.id = o.customer_id", logger)

	plan := g.Generate("q6", dep, nil)

	last := plan.Steps[len(plan.Steps)-1]
	if plan.FinalRows != last.EstimatedRows {
		t.Errorf("Expected final rows %d to match last step, got %d",
			last.EstimatedRows, plan.FinalRows)
	}
}
