package sqltext

import "sort"

// Usage records which clause kinds mention a column within one query.
type Usage struct {
	Column  string `json:"column"`
	InWhere bool   `json:"in_where_clause"`
	InJoin  bool   `json:"in_join_condition"`
	InOrder bool   `json:"in_order_by_clause"`
	InGroup bool   `json:"in_group_by_clause"`
}

// Any reports whether the column appears in at least one key clause.
func (u Usage) Any() bool {
	return u.InWhere || u.InJoin || u.InOrder || u.InGroup
}

// CollectUsage aggregates the per-clause extractor outputs into one
// record per column, sorted by column name.
func CollectUsage(s Segments) []Usage {
	byCol := map[string]*Usage{}
	mark := func(cols []string, set func(*Usage)) {
		for _, c := range cols {
			u, ok := byCol[c]
			if !ok {
				u = &Usage{Column: c}
				byCol[c] = u
			}
			set(u)
		}
	}
	mark(s.WhereColumns(), func(u *Usage) { u.InWhere = true })
	mark(s.JoinColumns(), func(u *Usage) { u.InJoin = true })
	mark(s.OrderByColumns(), func(u *Usage) { u.InOrder = true })
	mark(s.GroupByColumns(), func(u *Usage) { u.InGroup = true })

	out := make([]Usage, 0, len(byCol))
	for _, u := range byCol {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}
