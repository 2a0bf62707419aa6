package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/leengari/query-advisor/internal/audit"
	"github.com/leengari/query-advisor/internal/report"
)

// Methodology labels embedded in report envelopes.
const (
	methodGraph       = "static_join_analysis"
	methodCardinality = "heuristic_selectivity"
	methodJoinPlan    = "greedy_cost_based"
	methodSingleCol   = "clause_usage_scoring"
	methodComposite   = "and_group_prefix_analysis"
	methodImpact      = "benefit_cost_heuristic"
)

// BuildReport assembles the payload for one report kind from a finished
// analysis.
func BuildReport(a *Analysis, kind report.Kind) (any, error) {
	now := time.Now().UTC()
	switch kind {
	case report.KindDependencyGraph:
		return report.GraphReport{
			QueryID:     a.QueryID,
			GeneratedAt: now,
			Method:      methodGraph,
			Tables:      a.Dependencies.Tables,
			Aliases:     a.Dependencies.Aliases,
			Edges:       a.Dependencies.Edges,
		}, nil
	case report.KindCardinality:
		return report.CardinalityReport{
			QueryID:     a.QueryID,
			GeneratedAt: now,
			Method:      methodCardinality,
			Steps:       a.Estimates,
		}, nil
	case report.KindJoinPlan:
		return report.JoinPlanReport{
			QueryID:     a.QueryID,
			GeneratedAt: now,
			Method:      methodJoinPlan,
			Plan:        a.Plan,
		}, nil
	case report.KindSingleColumn:
		return report.IndexReport{
			QueryID:         a.QueryID,
			GeneratedAt:     now,
			Method:          methodSingleCol,
			Recommendations: a.SingleColumn,
		}, nil
	case report.KindComposite:
		return report.IndexReport{
			QueryID:         a.QueryID,
			GeneratedAt:     now,
			Method:          methodComposite,
			Recommendations: a.Composite,
		}, nil
	case report.KindImpact:
		return report.ImpactReport{
			QueryID:     a.QueryID,
			GeneratedAt: now,
			Method:      methodImpact,
			Assessments: a.Assessments,
		}, nil
	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
}

// Publish writes the requested report kinds to every sink. A failing
// sink write is logged and counted but does not stop the remaining
// reports.
func (p *Pipeline) Publish(ctx context.Context, a *Analysis, kinds []report.Kind, sinks ...report.Sink) error {
	if len(kinds) == 0 {
		kinds = report.AllKinds()
	}
	var failed int
	var firstErr error
	for _, kind := range kinds {
		payload, err := BuildReport(a, kind)
		if err != nil {
			return err
		}
		for _, sink := range sinks {
			if err := sink.Write(ctx, a.QueryID, kind, payload); err != nil {
				p.logger.Error("report write failed",
					"query_id", a.QueryID, "kind", string(kind), "error", err)
				failed++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	p.notify(a.QueryID, audit.ActionReport, "Reports generated",
		"impact_assessed", "reported", map[string]any{
			"kinds": len(kinds), "sinks": len(sinks), "failed": failed,
		})
	return firstErr
}
