package indexadvisor

import (
	"log/slog"
	"strings"

	"github.com/leengari/query-advisor/internal/stats"
)

// Caps keep the relative scores from running away; they are heuristics,
// not calibrated costs.
const (
	benefitCap = 150
	costCap    = 100
)

// QueryProfile is the optional caller-supplied context for impact
// scoring: how often the query runs and what it costs without the index.
type QueryProfile struct {
	Frequency        stats.Frequency `json:"frequency"`
	CostWithoutIndex float64         `json:"estimated_cost_without_index"`
}

// Impact is the assessment for one recommendation. Overall is
// Benefit - Cost; positive means the index likely pays for itself.
type Impact struct {
	Benefit int    `json:"estimated_benefit_score"`
	Cost    int    `json:"estimated_cost_score"`
	Overall int    `json:"overall_impact_score"`
	Remarks string `json:"remarks"`
}

// ImpactEstimator weighs a recommendation's benefit against table-level
// maintenance cost.
type ImpactEstimator struct {
	cfg    *stats.Config
	logger *slog.Logger
}

func NewImpactEstimator(cfg *stats.Config, logger *slog.Logger) *ImpactEstimator {
	return &ImpactEstimator{cfg: cfg, logger: logger}
}

// Estimate scores one recommendation. Benefit starts from the
// recommender's score, scaled up for frequent queries and expensive
// unindexed plans; cost accumulates write-frequency, table-size, and
// index-width penalties. Both are capped and the remarks name the
// dominant factors.
func (ie *ImpactEstimator) Estimate(queryID string, rec Recommendation, profile *QueryProfile) Impact {
	benefit := float64(rec.Score)
	var remarks []string
	if rec.Score > 0 {
		remarks = append(remarks, "Addresses columns used in: "+rec.Reason+".")
	}

	if profile != nil {
		switch profile.Frequency {
		case stats.FrequencyHigh:
			benefit *= 1.5
			remarks = append(remarks, "High query frequency increases benefit.")
		case stats.FrequencyMedium:
			benefit *= 1.2
		}
		if profile.CostWithoutIndex > 100 {
			benefit += 20
			remarks = append(remarks, "High original query cost suggests good potential for improvement.")
		}
	}

	cost := 0.0
	ts, known := ie.cfg.Lookup(rec.Table)
	if known {
		switch ts.WriteFrequency {
		case stats.FrequencyHigh:
			cost += 40
			remarks = append(remarks, "High table write frequency increases maintenance cost.")
		case stats.FrequencyMedium:
			cost += 20
		}
		if ts.RowCount > 1_000_000 {
			cost += 15
			remarks = append(remarks, "Large table size increases storage/maintenance cost.")
		}
	} else {
		cost += 10
		remarks = append(remarks, "Table statistics not available, assuming moderate maintenance cost.")
	}
	if len(rec.Columns) > 1 {
		cost += 10 * float64(len(rec.Columns)-1)
		remarks = append(remarks, "Composite index is wider, increasing cost slightly.")
	}

	if benefit > benefitCap {
		benefit = benefitCap
	}
	if cost > costCap {
		cost = costCap
	}
	overall := benefit - cost

	switch {
	case overall > 50:
		remarks = append(remarks, "Overall positive impact expected.")
	case overall > 0:
		remarks = append(remarks, "Modest positive impact expected.")
	default:
		remarks = append(remarks, "Potential for negative or negligible impact. Review carefully.")
	}

	impact := Impact{
		Benefit: int(benefit + 0.5),
		Cost:    int(cost + 0.5),
		Remarks: strings.Join(remarks, " "),
	}
	impact.Overall = impact.Benefit - impact.Cost

	ie.logger.Info("index impact estimated",
		"query_id", queryID, "table", rec.Table, "columns", rec.Columns,
		"benefit", impact.Benefit, "cost", impact.Cost, "overall", impact.Overall)
	return impact
}
