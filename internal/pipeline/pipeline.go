package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leengari/query-advisor/internal/audit"
	"github.com/leengari/query-advisor/internal/cardinality"
	"github.com/leengari/query-advisor/internal/depgraph"
	"github.com/leengari/query-advisor/internal/indexadvisor"
	"github.com/leengari/query-advisor/internal/joinorder"
	"github.com/leengari/query-advisor/internal/report"
	"github.com/leengari/query-advisor/internal/sqltext"
	"github.com/leengari/query-advisor/internal/stats"
)

// Handle identifies one query submitted for analysis. An empty ID gets
// a generated UUID.
type Handle struct {
	ID  string
	SQL string
}

// Analysis is the complete result of one pipeline run. All fields are
// populated; a stage that finds nothing leaves its field empty rather
// than failing the run.
type Analysis struct {
	QueryID string
	SQL     string

	Segments     sqltext.Segments
	Usage        []sqltext.Usage
	Dependencies *depgraph.Analysis

	// ScanEstimates maps each table to its filtered scan cardinality.
	ScanEstimates map[string]int64
	Estimates     []cardinality.Estimate
	Plan          *joinorder.Plan

	SingleColumn []indexadvisor.Recommendation
	Composite    []indexadvisor.Recommendation
	Assessments  []report.Assessment
}

// Recommendations returns single-column and composite recommendations
// as one list, in assessment order.
func (a *Analysis) Recommendations() []indexadvisor.Recommendation {
	out := make([]indexadvisor.Recommendation, 0, len(a.SingleColumn)+len(a.Composite))
	out = append(out, a.SingleColumn...)
	out = append(out, a.Composite...)
	return out
}

// Pipeline wires the analysis stages together. It holds only immutable
// configuration and is safe for concurrent Analyze calls; each call
// builds its own per-query state.
type Pipeline struct {
	cfg    *stats.Config
	obs    audit.Observer
	logger *slog.Logger
	tracer trace.Tracer
}

func New(cfg *stats.Config, obs audit.Observer, logger *slog.Logger) *Pipeline {
	if cfg == nil {
		cfg = stats.Default()
	}
	if obs == nil {
		obs = audit.NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		obs:    obs,
		logger: logger,
		tracer: otel.Tracer("query-advisor/pipeline"),
	}
}

// Analyze runs the full advisory pipeline over one query: clause
// segmentation, dependency graph, cardinality estimation, greedy join
// ordering, index recommendations, and impact assessment. profile is
// optional context for impact scoring.
func (p *Pipeline) Analyze(ctx context.Context, h Handle, profile *indexadvisor.QueryProfile) *Analysis {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	logger := p.logger.With("query_id", h.ID)
	a := &Analysis{QueryID: h.ID, SQL: h.SQL}

	ctx, span := p.tracer.Start(ctx, "pipeline.analyze",
		trace.WithAttributes(attribute.String("query_id", h.ID)))
	defer span.End()

	logger.Info("query analysis started", "length", len(h.SQL))
	p.notify(h.ID, audit.ActionQueryAnalysis, "Query analysis started",
		"received", "analyzing", map[string]any{"query_length": len(h.SQL)})

	p.segment(ctx, a, logger)
	p.buildGraph(ctx, a, logger)
	p.estimate(ctx, a, logger)
	p.recommend(ctx, a, logger)
	p.assess(ctx, a, profile, logger)

	logger.Info("query analysis finished",
		"tables", len(a.Dependencies.Tables),
		"join_steps", len(a.Plan.Steps),
		"recommendations", len(a.SingleColumn)+len(a.Composite))
	p.notify(h.ID, audit.ActionQueryAnalysis, "Query analysis finished",
		"analyzing", "complete", map[string]any{
			"tables":          len(a.Dependencies.Tables),
			"recommendations": len(a.SingleColumn) + len(a.Composite),
		})
	return a
}

func (p *Pipeline) segment(ctx context.Context, a *Analysis, logger *slog.Logger) {
	_, span := p.tracer.Start(ctx, "pipeline.segment")
	defer span.End()

	a.Segments = sqltext.Segment(a.SQL)
	a.Usage = sqltext.CollectUsage(a.Segments)

	logger.Debug("query segmented",
		"tables", len(a.Segments.Tables), "joins", len(a.Segments.Joins),
		"columns", len(a.Usage))
	p.notify(a.QueryID, audit.ActionExtraction, "Clauses and column usage extracted",
		"analyzing", "segmented", map[string]any{
			"tables":  len(a.Segments.Tables),
			"columns": len(a.Usage),
		})
}

func (p *Pipeline) buildGraph(ctx context.Context, a *Analysis, logger *slog.Logger) {
	_, span := p.tracer.Start(ctx, "pipeline.depgraph")
	defer span.End()

	a.Dependencies = depgraph.Analyze(a.QueryID, a.Segments, logger)

	p.notify(a.QueryID, audit.ActionExtraction, "Table dependency graph built",
		"segmented", "graph_built", map[string]any{
			"nodes": len(a.Dependencies.Tables),
			"edges": len(a.Dependencies.Edges),
		})
}

// estimate computes filtered scan cardinalities, generates the greedy
// join plan over them, and records per-step estimates for the combined
// scan+join plan.
func (p *Pipeline) estimate(ctx context.Context, a *Analysis, logger *slog.Logger) {
	_, span := p.tracer.Start(ctx, "pipeline.cardinality")
	defer span.End()

	est := cardinality.NewEstimator(p.cfg, logger)
	conds := filterConditionsByTable(a.Dependencies, a.Segments.WhereConditions())

	a.ScanEstimates = make(map[string]int64, len(a.Dependencies.Tables))
	steps := make([]cardinality.Step, 0, 2*len(a.Dependencies.Tables))
	for _, t := range a.Dependencies.Tables {
		rows := est.EstimateFilter(t, conds[t])
		a.ScanEstimates[t] = rows
		steps = append(steps, cardinality.Step{
			ID: t, Type: cardinality.StepScan, Table: t, Filters: conds[t],
		})
	}
	p.notify(a.QueryID, audit.ActionCardinality, "Scan cardinalities estimated",
		"graph_built", "cardinalities_estimated", map[string]any{"tables": len(a.ScanEstimates)})

	gen := joinorder.NewGenerator(est, logger)
	a.Plan = gen.Generate(a.QueryID, a.Dependencies, a.ScanEstimates)
	p.notify(a.QueryID, audit.ActionJoinOrdering, "Join sequence generated",
		"cardinalities_estimated", "join_plan_ready", map[string]any{
			"steps":      len(a.Plan.Steps),
			"total_cost": a.Plan.TotalCost,
		})

	for _, s := range a.Plan.Steps {
		steps = append(steps, cardinality.Step{
			ID:         s.OutputName,
			Type:       cardinality.StepJoin,
			LeftRef:    s.LeftInput,
			RightRef:   s.RightTable,
			Kind:       s.Kind,
			Condition:  s.Condition,
			LeftTable:  s.LeftInput,
			RightTable: s.RightTable,
		})
	}
	a.Estimates = est.EstimatePlan(steps)
}

func (p *Pipeline) recommend(ctx context.Context, a *Analysis, logger *slog.Logger) {
	_, span := p.tracer.Start(ctx, "pipeline.indexadvisor")
	defer span.End()

	usage := make([]sqltext.Usage, len(a.Usage))
	for i, u := range a.Usage {
		u.Column = a.Dependencies.ResolveColumn(u.Column)
		usage[i] = u
	}
	a.SingleColumn = indexadvisor.RecommendSingleColumn(a.QueryID, usage, logger)

	groups := a.Segments.WhereANDGroups()
	for _, g := range groups {
		for i, c := range g {
			g[i] = a.Dependencies.ResolveColumn(c)
		}
	}
	a.Composite = indexadvisor.RecommendComposite(a.QueryID, groups, logger)

	p.notify(a.QueryID, audit.ActionIndexAdvice, "Index recommendations generated",
		"join_plan_ready", "indexes_recommended", map[string]any{
			"single_column": len(a.SingleColumn),
			"composite":     len(a.Composite),
		})
}

func (p *Pipeline) assess(ctx context.Context, a *Analysis, profile *indexadvisor.QueryProfile, logger *slog.Logger) {
	_, span := p.tracer.Start(ctx, "pipeline.impact")
	defer span.End()

	ie := indexadvisor.NewImpactEstimator(p.cfg, logger)
	for _, rec := range a.Recommendations() {
		a.Assessments = append(a.Assessments, report.Assessment{
			Recommendation: rec,
			Impact:         ie.Estimate(a.QueryID, rec, profile),
		})
	}
	p.notify(a.QueryID, audit.ActionImpactEstimate, "Index impact assessed",
		"indexes_recommended", "impact_assessed", map[string]any{
			"assessments": len(a.Assessments),
		})
}

func (p *Pipeline) notify(queryID string, action audit.ActionType, summary, prev, cur string, details map[string]any) {
	p.obs.OnEvent(audit.Event{
		QueryID:       queryID,
		Action:        action,
		Summary:       summary,
		PreviousState: prev,
		CurrentState:  cur,
		Details:       details,
		Timestamp:     time.Now().UTC(),
	})
}

// filterConditionsByTable attributes each WHERE condition to the table
// its qualified columns reference. Unqualified conditions attribute to
// the only table when there is exactly one; conditions spanning several
// tables (join-style predicates) are skipped, the join estimator
// accounts for those.
func filterConditionsByTable(dep *depgraph.Analysis, conditions []string) map[string][]string {
	out := map[string][]string{}
	for _, cond := range conditions {
		lower := strings.ToLower(cond)
		var owner string
		multi := false
		for alias, table := range dep.Aliases {
			if containsQualifier(lower, strings.ToLower(alias)) {
				if owner != "" && owner != table {
					multi = true
					break
				}
				owner = table
			}
		}
		if multi {
			continue
		}
		if owner == "" {
			if len(dep.Tables) != 1 {
				continue
			}
			owner = dep.Tables[0]
		}
		out[owner] = append(out[owner], cond)
	}
	return out
}

// containsQualifier reports whether `alias.` appears in the condition
// at a word boundary.
func containsQualifier(lower, alias string) bool {
	needle := alias + "."
	from := 0
	for {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !isWordByte(lower[i-1]) {
			return true
		}
		from = i + 1
	}
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
