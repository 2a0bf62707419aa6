package indexadvisor

import (
	"fmt"
	"log/slog"
	"strings"
)

// Score per column of a composite tuple.
const compositeColumnScore = 50

// RecommendComposite turns AND-connected column groups (as produced by
// the WHERE-span grouping pass) into composite index candidates. For
// each group it emits every prefix tuple of length >= 2 whose columns
// all belong to the same table; column order within the tuple follows
// appearance order in the predicate, which is what matters for index
// matching.
//
// The grouping input is approximate (top-level OR/AND splitting only),
// so these are candidates to review, not guaranteed co-occurrences.
func RecommendComposite(queryID string, groups [][]string, logger *slog.Logger) []Recommendation {
	var out []Recommendation
	seen := map[string]struct{}{}

	for _, group := range groups {
		table, cols := sameTableColumns(group)
		if table == "" || len(cols) < 2 {
			continue
		}
		for n := 2; n <= len(cols); n++ {
			prefix := cols[:n]
			key := table + ":" + strings.Join(prefix, ",")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			qualified := make([]string, n)
			for i, c := range prefix {
				qualified[i] = table + "." + c
			}
			name := fmt.Sprintf("idx_%s_comp_%s", table, strings.Join(prefix, "_"))
			out = append(out, Recommendation{
				Columns:   qualified,
				Table:     table,
				Reason:    fmt.Sprintf("Columns %s co-occur in AND-connected conditions", strings.Join(qualified, ", ")),
				Score:     compositeColumnScore * n,
				IndexName: name,
				DDL:       fmt.Sprintf("CREATE INDEX %s ON %s(%s);", name, table, strings.Join(prefix, ", ")),
				Composite: true,
			})
		}
	}
	sortRecommendations(out)
	logger.Info("composite index recommendations generated",
		"query_id", queryID, "count", len(out))
	return out
}

// sameTableColumns returns the shared table of a qualified column group
// and the bare column names, preserving order. Groups with unqualified
// columns or columns spanning tables yield no table: composite analysis
// only covers single-table tuples.
func sameTableColumns(group []string) (table string, cols []string) {
	for _, qc := range group {
		i := strings.LastIndexByte(qc, '.')
		if i < 0 {
			return "", nil
		}
		t, c := qc[:i], qc[i+1:]
		if table == "" {
			table = t
		} else if t != table {
			return "", nil
		}
		cols = append(cols, c)
	}
	return table, cols
}
