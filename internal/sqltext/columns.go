package sqltext

import (
	"sort"
	"strings"
)

// Non-column tokens filtered per clause. Aggregate and date functions
// are listed even though the function-call check catches most of them,
// because they also appear bare in ORDER BY aliases.
var (
	commonFunctions = []string{
		"COUNT", "SUM", "AVG", "MIN", "MAX", "ABS", "ROUND", "CAST",
		"SUBSTRING", "TRIM", "LENGTH", "DATE", "YEAR", "MONTH", "DAY",
		"NOW", "CURRENT_DATE", "CURRENT_TIMESTAMP",
	}

	whereKeywords = keywordSet(
		"AND", "OR", "NOT", "NULL", "IS", "IN", "LIKE", "BETWEEN", "EXISTS",
		"CASE", "WHEN", "THEN", "ELSE", "END", "ANY", "ALL", "SOME",
		"TRUE", "FALSE", "SELECT", "FROM", "WHERE",
	)

	joinKeywords = keywordSet(
		"AND", "OR", "NOT", "NULL", "IS", "IN", "LIKE", "BETWEEN",
		"EXISTS", "USING", "TRUE", "FALSE",
	)

	orderGroupKeywords = keywordSet(
		"ASC", "DESC", "NULLS", "FIRST", "LAST",
	)

	generalKeywords = keywordSet(
		"SELECT", "FROM", "WHERE", "JOIN", "INNER", "LEFT", "RIGHT", "FULL",
		"OUTER", "CROSS", "ON", "GROUP", "BY", "ORDER", "AS", "AND", "OR",
		"NOT", "NULL", "IS", "IN", "LIKE", "BETWEEN", "EXISTS", "CASE",
		"WHEN", "THEN", "ELSE", "END", "CREATE", "TABLE", "INSERT", "UPDATE",
		"DELETE", "ALTER", "DROP", "INDEX", "VIEW", "WITH", "HAVING",
		"LIMIT", "OFFSET", "UNION", "ALL", "DISTINCT", "SET", "VALUES",
		"DEFAULT", "PRIMARY", "KEY", "FOREIGN", "REFERENCES", "CONSTRAINT",
		"ASC", "DESC", "TIMESTAMP", "INTERVAL", "TRUE", "FALSE", "USING",
		"FETCH", "WINDOW", "FOR",
	)
)

func keywordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words)+len(commonFunctions))
	for _, w := range words {
		s[w] = struct{}{}
	}
	for _, f := range commonFunctions {
		s[f] = struct{}{}
	}
	return s
}

// WhereColumns returns the unique column mentions of the WHERE span,
// alias-qualified where present in the text.
func (s Segments) WhereColumns() []string {
	return columnsIn(s.Where, whereKeywords)
}

// JoinColumns returns the unique column mentions across all JOIN ON
// condition spans.
func (s Segments) JoinColumns() []string {
	seen := map[string]struct{}{}
	for _, j := range s.Joins {
		for _, c := range columnsIn(j.Condition, joinKeywords) {
			seen[c] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// OrderByColumns returns the column mentions of the ORDER BY span.
// Function-call entries (expressions) are skipped whole.
func (s Segments) OrderByColumns() []string {
	return listClauseColumns(s.OrderBy)
}

// GroupByColumns returns the column mentions of the GROUP BY span.
func (s Segments) GroupByColumns() []string {
	return listClauseColumns(s.GroupBy)
}

// MentionedColumns returns every identifier in the query that survives
// the keyword and function-call filters. It over-approximates: table
// names and aliases are included, which downstream scoring tolerates.
func (s Segments) MentionedColumns() []string {
	return columnsIn(s.Query, generalKeywords)
}

// listClauseColumns handles comma-separated ORDER BY / GROUP BY lists:
// the first identifier of each entry counts, ASC/DESC decorations and
// function-call expressions do not.
func listClauseColumns(span string) []string {
	if span == "" {
		return nil
	}
	seen := map[string]struct{}{}
	for _, part := range strings.Split(span, ",") {
		part = strings.TrimSpace(part)
		ids := identifiers(part)
		if len(ids) == 0 {
			continue
		}
		id := ids[0]
		if id.call {
			continue
		}
		if _, skip := orderGroupKeywords[strings.ToUpper(id.text)]; skip {
			continue
		}
		seen[id.text] = struct{}{}
	}
	return sortedKeys(seen)
}

// columnsIn tokenizes identifier-shaped substrings in a span, dropping
// function calls and the given keyword set, and returns them sorted and
// deduplicated. An empty span yields nil.
func columnsIn(span string, stop map[string]struct{}) []string {
	if span == "" {
		return nil
	}
	seen := map[string]struct{}{}
	for _, id := range identifiers(span) {
		if id.call {
			continue
		}
		if _, skip := stop[strings.ToUpper(id.text)]; skip {
			continue
		}
		seen[id.text] = struct{}{}
	}
	return sortedKeys(seen)
}

type ident struct {
	text string
	call bool // immediately followed by '(' in the source
}

// identifiers scans a span for ident(.ident)* tokens, skipping string
// literal contents.
func identifiers(span string) []ident {
	masked := maskLiterals(span)
	var out []ident
	for i := 0; i < len(masked); {
		if !isIdentStart(masked[i]) {
			i++
			continue
		}
		start := i
		for i < len(masked) && isIdentByte(masked[i]) {
			i++
		}
		for i+1 < len(masked) && masked[i] == '.' && isIdentStart(masked[i+1]) {
			i++
			for i < len(masked) && isIdentByte(masked[i]) {
				i++
			}
		}
		j := i
		for j < len(masked) && masked[j] == ' ' {
			j++
		}
		out = append(out, ident{
			text: span[start:i],
			call: j < len(masked) && masked[j] == '(',
		})
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WhereConditions splits the WHERE span into its top-level predicates
// (split on AND and OR outside parentheses and string literals).
func (s Segments) WhereConditions() []string {
	if s.Where == "" {
		return nil
	}
	var out []string
	for _, orChunk := range splitTopLevel(s.Where, "OR") {
		for _, pred := range splitTopLevel(orChunk, "AND") {
			pred = strings.TrimSpace(pred)
			if pred != "" {
				out = append(out, pred)
			}
		}
	}
	return out
}

// WhereANDGroups returns, per top-level OR branch of the WHERE span, the
// columns of its AND-connected predicates in appearance order. This is
// the approximate co-occurrence grouping the composite advisor consumes:
// nesting deeper than one parenthesis level degrades to flat behavior.
func (s Segments) WhereANDGroups() [][]string {
	if s.Where == "" {
		return nil
	}
	var groups [][]string
	for _, orChunk := range splitTopLevel(s.Where, "OR") {
		var group []string
		seen := map[string]struct{}{}
		for _, pred := range splitTopLevel(orChunk, "AND") {
			ids := identifiers(pred)
			for _, id := range ids {
				if id.call {
					continue
				}
				if _, skip := whereKeywords[strings.ToUpper(id.text)]; skip {
					continue
				}
				if _, dup := seen[id.text]; !dup {
					seen[id.text] = struct{}{}
					group = append(group, id.text)
				}
				break // first surviving identifier per predicate
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// splitTopLevel splits s on the given keyword at parenthesis depth zero,
// outside string literals. The keyword match is case-insensitive and
// word-boundary aware.
func splitTopLevel(s, word string) []string {
	upper := strings.ToUpper(maskLiterals(s))
	w := strings.ToUpper(word)
	var parts []string
	depth := 0
	last := 0
	for i := 0; i+len(w) <= len(upper); i++ {
		switch upper[i] {
		case '(':
			depth++
			continue
		case ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth != 0 || upper[i:i+len(w)] != w {
			continue
		}
		if i > 0 && isIdentByte(upper[i-1]) {
			continue
		}
		if end := i + len(w); end < len(upper) && isIdentByte(upper[end]) {
			continue
		}
		parts = append(parts, s[last:i])
		last = i + len(w)
		i += len(w) - 1
	}
	parts = append(parts, s[last:])
	return parts
}
