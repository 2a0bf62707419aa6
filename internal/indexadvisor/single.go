package indexadvisor

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leengari/query-advisor/internal/sqltext"
)

// Clause weights for single-column scoring.
const (
	weightWhere   = 30
	weightJoin    = 25
	weightOrderBy = 20
	weightGroupBy = 15
)

// Recommendation is one suggested index: a single column or an ordered
// composite.
type Recommendation struct {
	Columns   []string `json:"columns"`
	Table     string   `json:"table_name"`
	Reason    string   `json:"reason"`
	Score     int      `json:"score"`
	IndexName string   `json:"index_name_suggestion"`
	DDL       string   `json:"sql_command_suggestion"`
	Composite bool     `json:"composite,omitempty"`
}

// RecommendSingleColumn scores each column by the clauses it appears in
// and recommends an index for every column with a positive score,
// sorted descending by score (column name ascending on ties).
func RecommendSingleColumn(queryID string, usage []sqltext.Usage, logger *slog.Logger) []Recommendation {
	var out []Recommendation
	for _, u := range usage {
		score := 0
		var reasons []string
		if u.InWhere {
			score += weightWhere
			reasons = append(reasons, "Used in WHERE clause")
		}
		if u.InJoin {
			score += weightJoin
			reasons = append(reasons, "Used in JOIN condition")
		}
		if u.InOrder {
			score += weightOrderBy
			reasons = append(reasons, "Used in ORDER BY clause")
		}
		if u.InGroup {
			score += weightGroupBy
			reasons = append(reasons, "Used in GROUP BY clause")
		}
		if score == 0 {
			continue
		}

		table, column := splitQualified(u.Column)
		name := fmt.Sprintf("idx_%s_%s", table, column)
		out = append(out, Recommendation{
			Columns:   []string{u.Column},
			Table:     table,
			Reason:    strings.Join(reasons, ", "),
			Score:     score,
			IndexName: name,
			DDL:       fmt.Sprintf("CREATE INDEX %s ON %s(%s);", name, table, column),
		})
	}
	sortRecommendations(out)
	logger.Info("single-column index recommendations generated",
		"query_id", queryID, "count", len(out))
	return out
}

// splitQualified breaks table.column into its parts; unqualified columns
// get the unknown-table placeholder.
func splitQualified(col string) (table, column string) {
	if i := strings.LastIndexByte(col, '.'); i >= 0 {
		return col[:i], col[i+1:]
	}
	return "unknown_table", col
}

func sortRecommendations(recs []Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return strings.Join(recs[i].Columns, ",") < strings.Join(recs[j].Columns, ",")
	})
}
