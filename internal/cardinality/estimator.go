package cardinality

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leengari/query-advisor/internal/depgraph"
	"github.com/leengari/query-advisor/internal/stats"
)

// Estimator derives row-count estimates for filtered scans and joins
// from the static statistics config. It holds no per-query state and is
// safe to share across analyses.
type Estimator struct {
	cfg    *stats.Config
	logger *slog.Logger
}

func NewEstimator(cfg *stats.Config, logger *slog.Logger) *Estimator {
	return &Estimator{cfg: cfg, logger: logger}
}

// TableCardinality returns the base row count for a table, falling back
// to the default entry for unknown tables.
func (e *Estimator) TableCardinality(table string) int64 {
	ts, _ := e.cfg.Lookup(table)
	return ts.RowCount
}

// Matches equality on a column conventionally treated as unique
// (id or pk).
var uniqueEquality = regexp.MustCompile(`(?i)\b(?:id|pk)\b\s*=\s*\S+`)

// Selectivity classifies a filter condition by shape and returns the
// estimated fraction of rows it retains, always in [0, 1].
func (e *Estimator) Selectivity(condition, table string) float64 {
	sel := e.cfg.Selectivity
	lower := strings.ToLower(condition)

	if uniqueEquality.MatchString(lower) {
		if base := e.TableCardinality(table); base > 0 {
			return 1.0 / float64(base)
		}
		return sel.EqualityUnique
	}
	if strings.Contains(lower, "!=") || strings.Contains(lower, "<>") {
		return sel.RangeLarge
	}
	if strings.Contains(lower, ">=") || strings.Contains(lower, "<=") {
		return sel.RangeSmall
	}
	if strings.Contains(lower, " in (") || strings.HasPrefix(lower, "in (") {
		items := strings.Count(lower, ",") + 1
		s := float64(items) * sel.EqualityNonUnique
		if s > 1 {
			s = 1
		}
		return s
	}
	if strings.Contains(lower, "like") {
		return likeSelectivity(lower, sel)
	}
	if strings.Contains(lower, "between") {
		return sel.RangeSmall
	}
	if strings.Contains(lower, "=") {
		return sel.EqualityNonUnique
	}
	if strings.Contains(lower, ">") || strings.Contains(lower, "<") {
		return sel.RangeSmall
	}
	return sel.DefaultFilter
}

// likeSelectivity distinguishes prefix patterns ('abc%') from suffix or
// infix patterns ('%abc', '%abc%').
func likeSelectivity(lower string, sel stats.Selectivity) float64 {
	q1 := strings.IndexByte(lower, '\'')
	if q1 >= 0 {
		q2 := strings.IndexByte(lower[q1+1:], '\'')
		if q2 > 0 {
			pattern := lower[q1+1 : q1+1+q2]
			if !strings.HasPrefix(pattern, "%") {
				return sel.LikePrefix
			}
		}
	}
	return sel.LikeOther
}

// EstimateFilter multiplies the base cardinality by the product of each
// condition's selectivity (independence assumption). The result is
// floored at 1.
func (e *Estimator) EstimateFilter(table string, conditions []string) int64 {
	base := e.TableCardinality(table)
	cumulative := 1.0
	for _, c := range conditions {
		cumulative *= e.Selectivity(c, table)
	}
	est := floor1(int64(float64(base) * cumulative))
	e.logger.Debug("filter cardinality estimated",
		"table", table, "base", base, "conditions", len(conditions),
		"selectivity", cumulative, "estimated", est)
	return est
}

// EstimateJoin estimates the row count of joining two inputs. INNER
// joins with a detectable PK-FK naming shape resolve to the "many"
// side's cardinality; other inner joins apply the fixed join selectivity
// factor; LEFT/RIGHT/FULL use additive growth anchored to the preserved
// side. All results floor at 1.
func (e *Estimator) EstimateJoin(cardLeft, cardRight int64, kind depgraph.JoinKind, condition, nameLeft, nameRight string) int64 {
	if kind == depgraph.Cross || strings.TrimSpace(condition) == "" {
		return floor1(cardLeft * cardRight)
	}

	lower := strings.ToLower(condition)
	pkfk := pkfkShape(lower, nameLeft, nameRight)
	factor := e.cfg.JoinSelectivityFactor

	var est int64
	switch kind {
	case depgraph.Inner:
		switch {
		case pkfk && strings.Contains(lower, strings.ToLower(nameLeft)+".id"):
			est = cardRight
		case pkfk:
			est = cardLeft
		default:
			est = int64(float64(cardLeft) * float64(cardRight) * factor)
		}
	case depgraph.Left:
		est = cardLeft
		if !pkfk || strings.Contains(lower, strings.ToLower(nameRight)+".id") {
			est = grow(cardLeft, cardRight, e.TableCardinality(nameRight))
		}
	case depgraph.Right:
		est = cardRight
		if !pkfk || strings.Contains(lower, strings.ToLower(nameLeft)+".id") {
			est = grow(cardRight, cardLeft, e.TableCardinality(nameLeft))
		}
	case depgraph.Full:
		left := grow(cardLeft, cardRight, e.TableCardinality(nameRight))
		right := grow(cardRight, cardLeft, e.TableCardinality(nameLeft))
		est = max64(left, max64(right, int64(float64(cardLeft)*float64(cardRight)*factor)))
	default:
		est = cardLeft * cardRight
	}

	est = floor1(est)
	e.logger.Debug("join cardinality estimated",
		"left", nameLeft, "right", nameRight, "kind", kind.String(),
		"card_left", cardLeft, "card_right", cardRight, "estimated", est)
	return est
}

// grow models outer-join growth on the preserved side: a small additive
// factor scaled by how much of the other input survives relative to its
// base table.
func grow(preserved, other, otherBase int64) int64 {
	ratio := 1.0
	if otherBase > 0 {
		ratio = float64(other) / float64(otherBase)
	}
	return preserved + int64(float64(preserved)*ratio*0.1)
}

// pkfkShape detects the `a.id = b.a_id` naming convention in either
// direction. It is a pure naming heuristic, not a schema lookup.
func pkfkShape(lowerCond, left, right string) bool {
	l := strings.ToLower(left)
	r := strings.ToLower(right)
	p1 := regexp.MustCompile(regexp.QuoteMeta(l) + `\.id\s*=\s*` + regexp.QuoteMeta(r) + `\.` + regexp.QuoteMeta(l) + `_id\b`)
	p2 := regexp.MustCompile(regexp.QuoteMeta(r) + `\.id\s*=\s*` + regexp.QuoteMeta(l) + `\.` + regexp.QuoteMeta(r) + `_id\b`)
	return p1.MatchString(lowerCond) || p2.MatchString(lowerCond)
}

func floor1(n int64) int64 {
	if n < 1 {
		return 1
	}
	return n
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// StepType tags a plan step as a base-table scan or a join of two
// earlier steps.
type StepType int

const (
	StepScan StepType = iota
	StepJoin
)

// Step is one entry of a simplified, ordered query plan fed to
// EstimatePlan. Scan steps name a table and its filter conditions; join
// steps reference the IDs of their two inputs.
type Step struct {
	ID   string
	Type StepType

	// Scan fields.
	Table   string
	Filters []string

	// Join fields.
	LeftRef    string
	RightRef   string
	Kind       depgraph.JoinKind
	Condition  string
	LeftTable  string
	RightTable string
}

// Estimate is the estimated output cardinality of one plan step.
type Estimate struct {
	StepID string `json:"step_id"`
	Rows   int64  `json:"estimated_rows"`
}

// EstimatePlan walks an ordered list of scan/join steps, threading each
// step's output cardinality into later steps that reference it, and
// records every intermediate estimate. Unknown references fall back to
// the default table cardinality.
func (e *Estimator) EstimatePlan(steps []Step) []Estimate {
	byID := map[string]int64{}
	out := make([]Estimate, 0, len(steps))
	fallback := e.TableCardinality(stats.DefaultTableKey)

	for i, s := range steps {
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("step_%d", i)
		}
		var rows int64
		switch s.Type {
		case StepScan:
			rows = e.EstimateFilter(s.Table, s.Filters)
		case StepJoin:
			left, ok := byID[s.LeftRef]
			if !ok {
				left = fallback
			}
			right, ok := byID[s.RightRef]
			if !ok {
				right = fallback
			}
			rows = e.EstimateJoin(left, right, s.Kind, s.Condition, s.LeftTable, s.RightTable)
		default:
			e.logger.Warn("unknown plan step type", "step_id", id)
			rows = fallback
		}
		byID[id] = rows
		out = append(out, Estimate{StepID: id, Rows: rows})
	}
	return out
}
