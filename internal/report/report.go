package report

import (
	"time"

	"github.com/leengari/query-advisor/internal/cardinality"
	"github.com/leengari/query-advisor/internal/depgraph"
	"github.com/leengari/query-advisor/internal/indexadvisor"
	"github.com/leengari/query-advisor/internal/joinorder"
)

// Kind identifies one report type. Every report is independently
// requestable and independently persistable.
type Kind string

const (
	KindDependencyGraph Kind = "dependency_graph"
	KindCardinality     Kind = "cardinality_estimation"
	KindJoinPlan        Kind = "join_plan"
	KindSingleColumn    Kind = "single_column_indexes"
	KindComposite       Kind = "composite_indexes"
	KindImpact          Kind = "index_impact"
)

// AllKinds lists every report kind in pipeline order.
func AllKinds() []Kind {
	return []Kind{
		KindDependencyGraph, KindCardinality, KindJoinPlan,
		KindSingleColumn, KindComposite, KindImpact,
	}
}

// GraphReport serializes the dependency analysis.
type GraphReport struct {
	QueryID     string            `json:"query_id"`
	GeneratedAt time.Time         `json:"timestamp"`
	Method      string            `json:"method"`
	Tables      []string          `json:"tables_involved"`
	Aliases     map[string]string `json:"aliases_used"`
	Edges       []depgraph.Edge   `json:"join_edges"`
}

// CardinalityReport serializes per-step row estimates for the scan and
// join steps of the analyzed query.
type CardinalityReport struct {
	QueryID     string                 `json:"query_id"`
	GeneratedAt time.Time              `json:"timestamp"`
	Method      string                 `json:"method"`
	Steps       []cardinality.Estimate `json:"estimations"`
}

// JoinPlanReport serializes the greedy join sequence.
type JoinPlanReport struct {
	QueryID     string          `json:"query_id"`
	GeneratedAt time.Time       `json:"timestamp"`
	Method      string          `json:"method"`
	Plan        *joinorder.Plan `json:"join_sequence"`
}

// IndexReport serializes single-column or composite recommendations.
type IndexReport struct {
	QueryID         string                        `json:"query_id"`
	GeneratedAt     time.Time                     `json:"timestamp"`
	Method          string                        `json:"method"`
	Recommendations []indexadvisor.Recommendation `json:"index_recommendations"`
}

// Assessment pairs a recommendation with its impact scores.
type Assessment struct {
	Recommendation indexadvisor.Recommendation `json:"index_details"`
	Impact         indexadvisor.Impact         `json:"impact"`
}

// ImpactReport serializes the impact assessments for every
// recommendation of a query.
type ImpactReport struct {
	QueryID     string       `json:"query_id"`
	GeneratedAt time.Time    `json:"timestamp"`
	Method      string       `json:"method"`
	Assessments []Assessment `json:"index_impact_assessments"`
}
