package joinorder

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/leengari/query-advisor/internal/cardinality"
	"github.com/leengari/query-advisor/internal/depgraph"
)

// PlanStep is one pairwise join in a generated plan. LeftInput names the
// running intermediate result (a base table for the first step),
// RightTable the base table folded in. Fallback marks degraded forced
// cross joins over a disconnected graph.
type PlanStep struct {
	Step          int               `json:"step"`
	LeftInput     string            `json:"left_input"`
	RightTable    string            `json:"right_input"`
	Kind          depgraph.JoinKind `json:"join_type"`
	Condition     string            `json:"condition"`
	OutputName    string            `json:"output_name"`
	EstimatedRows int64             `json:"estimated_rows"`
	EstimatedCost float64           `json:"estimated_cost"`
	Fallback      bool              `json:"fallback,omitempty"`
}

// Plan is the full greedy join sequence for one query.
type Plan struct {
	QueryID   string     `json:"query_id"`
	Tables    []string   `json:"initial_tables"`
	Steps     []PlanStep `json:"plan"`
	TotalCost float64    `json:"total_estimated_cost"`
	FinalRows int64      `json:"final_estimated_cardinality"`
}

// Generator produces greedy, cost-ordered join plans from a dependency
// graph and cardinality estimates.
type Generator struct {
	est    *cardinality.Estimator
	logger *slog.Logger
}

func NewGenerator(est *cardinality.Estimator, logger *slog.Logger) *Generator {
	return &Generator{est: est, logger: logger}
}

// joinCost is the additive step cost model: rows flowing through the
// join operator, with a heavy penalty on cross joins.
func joinCost(left, right, out int64, kind depgraph.JoinKind) float64 {
	cost := float64(left + right + out)
	if kind == depgraph.Cross {
		cost *= 10
	}
	return cost
}

type candidate struct {
	next string
	edge depgraph.Edge
	rows int64
	cost float64
}

// Generate runs a greedy nearest-neighbor search over the dependency
// graph: start at the table with the lowest estimated cardinality, then
// repeatedly fold in the cheapest reachable table. When the graph is
// disconnected, one forced cross join bridges into the unreachable
// component and the greedy traversal resumes there; each bridge is
// logged as a warning and marked as degraded, not optimal.
//
// cards maps table name to its (possibly filtered) scan estimate; tables
// missing from the map use their base cardinality. Zero- and one-table
// queries yield an empty plan.
func (g *Generator) Generate(queryID string, dep *depgraph.Analysis, cards map[string]int64) *Plan {
	plan := &Plan{QueryID: queryID, Tables: dep.Tables}
	if len(dep.Tables) < 2 {
		g.logger.Info("no joins needed", "query_id", queryID, "tables", dep.Tables)
		if len(dep.Tables) == 1 {
			plan.FinalRows = g.tableRows(dep.Tables[0], cards)
		}
		return plan
	}

	remaining := map[string]struct{}{}
	for _, t := range dep.Tables {
		remaining[t] = struct{}{}
	}

	start := dep.Tables[0]
	for _, t := range dep.Tables[1:] {
		if g.tableRows(t, cards) < g.tableRows(start, cards) {
			start = t
		}
	}
	delete(remaining, start)
	joined := []string{start}
	currentName := start
	currentRows := g.tableRows(start, cards)

	g.logger.Info("join sequence started",
		"query_id", queryID, "start_table", start, "cardinality", currentRows)

	for len(remaining) > 0 {
		best := g.bestCandidate(dep, joined, remaining, currentName, currentRows, cards)
		if best == nil {
			g.logger.Warn("no join path to remaining tables, graph disconnected",
				"query_id", queryID, "joined", joined, "remaining", sortedSet(remaining))

			// Bridge into the disconnected component with one forced cross
			// join against its cheapest table, then resume the greedy
			// traversal so the component's own join edges still get used.
			var bridge string
			for _, t := range sortedSet(remaining) {
				if bridge == "" || g.tableRows(t, cards) < g.tableRows(bridge, cards) {
					bridge = t
				}
			}
			rows := g.tableRows(bridge, cards)
			out := mulFloor1(currentRows, rows)
			cost := joinCost(currentRows, rows, out, depgraph.Cross)
			name := fmt.Sprintf("(%s_X_%s)", currentName, bridge)
			plan.Steps = append(plan.Steps, PlanStep{
				Step:          len(plan.Steps) + 1,
				LeftInput:     currentName,
				RightTable:    bridge,
				Kind:          depgraph.Cross,
				Condition:     "CROSS JOIN (fallback)",
				OutputName:    name,
				EstimatedRows: out,
				EstimatedCost: cost,
				Fallback:      true,
			})
			plan.TotalCost += cost
			currentName = name
			currentRows = out
			joined = append(joined, bridge)
			delete(remaining, bridge)
			g.logger.Warn("fallback cross join added", "query_id", queryID, "table", bridge)
			continue
		}

		name := fmt.Sprintf("(%s_%s)", currentName, best.next)
		plan.Steps = append(plan.Steps, PlanStep{
			Step:          len(plan.Steps) + 1,
			LeftInput:     currentName,
			RightTable:    best.next,
			Kind:          best.edge.Kind,
			Condition:     best.edge.Condition,
			OutputName:    name,
			EstimatedRows: best.rows,
			EstimatedCost: best.cost,
		})
		plan.TotalCost += best.cost
		g.logger.Info("join step selected",
			"query_id", queryID, "step", len(plan.Steps),
			"left", currentName, "right", best.next,
			"cost", best.cost, "rows", best.rows)

		currentName = name
		currentRows = best.rows
		joined = append(joined, best.next)
		delete(remaining, best.next)
	}

	plan.FinalRows = currentRows
	return plan
}

// bestCandidate enumerates graph edges from the joined set to remaining
// tables and picks the lowest-cost one. Iteration is over sorted names,
// so ties break deterministically by first-encountered order.
func (g *Generator) bestCandidate(dep *depgraph.Analysis, joined []string, remaining map[string]struct{}, currentName string, currentRows int64, cards map[string]int64) *candidate {
	var best *candidate
	for _, inSet := range joined {
		for _, next := range sortedSet(remaining) {
			edge, ok := dep.EdgeBetween(inSet, next)
			if !ok {
				continue
			}
			rightRows := g.tableRows(next, cards)
			rows := g.est.EstimateJoin(currentRows, rightRows, edge.Kind, edge.Condition, currentName, next)
			cost := joinCost(currentRows, rightRows, rows, edge.Kind)
			if best == nil || cost < best.cost {
				best = &candidate{next: next, edge: edge, rows: rows, cost: cost}
			}
		}
	}
	return best
}

func (g *Generator) tableRows(table string, cards map[string]int64) int64 {
	if rows, ok := cards[table]; ok {
		return rows
	}
	return g.est.TableCardinality(table)
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mulFloor1(a, b int64) int64 {
	n := a * b
	if n < 1 {
		return 1
	}
	return n
}
