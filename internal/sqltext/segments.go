package sqltext

import (
	"strings"
)

// TableRef is a table mention in a FROM or JOIN clause. Alias falls back
// to the table name when the query does not declare one.
type TableRef struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// JoinClause is one JOIN ... ON ... occurrence. Kind is the textual join
// kind (INNER, LEFT, RIGHT, FULL, CROSS); a bare JOIN reads as INNER.
// Condition is empty for CROSS joins or when no ON clause was found.
type JoinClause struct {
	Kind      string   `json:"kind"`
	Table     TableRef `json:"table"`
	Condition string   `json:"condition"`
}

// Segments is the result of the single shared segmentation pass over a
// query. Every downstream component consumes Segments instead of
// re-scanning the raw text.
//
// Clause isolation is heuristic: spans run from the clause keyword to
// the next clause-boundary keyword, and clauses of nested subqueries are
// not distinguished from the outer clause.
type Segments struct {
	Query   string       `json:"query"`
	Tables  []TableRef   `json:"tables"`
	Joins   []JoinClause `json:"joins"`
	Where   string       `json:"where"`
	OrderBy string       `json:"order_by"`
	GroupBy string       `json:"group_by"`

	// masked mirrors Query with string literal contents blanked out, so
	// keyword and identifier scans never match inside literals.
	masked string
}

// Keywords that terminate a clause span.
var clauseBoundaries = []string{
	"GROUP BY", "ORDER BY", "HAVING", "LIMIT", "OFFSET",
	"FETCH", "WINDOW", "FOR", "UNION",
}

// Segment runs the shared clause-segmentation pass. It never fails: a
// query with no recognizable clauses yields empty spans.
func Segment(query string) Segments {
	norm := normalizeSpace(query)
	masked := maskLiterals(norm)
	upper := strings.ToUpper(masked)

	s := Segments{Query: norm, masked: masked}
	s.Where = clauseSpan(upper, norm, "WHERE", nil)
	s.OrderBy = clauseSpan(upper, norm, "ORDER BY", nil)
	s.GroupBy = clauseSpan(upper, norm, "GROUP BY", nil)
	s.Tables, s.Joins = tableRefs(upper, norm)
	return s
}

// Masked returns the normalized query text with string literal contents
// blanked out. Pattern scans that must not match inside literals run
// over this text; indexes line up with Query.
func (s Segments) Masked() string {
	return s.masked
}

// normalizeSpace collapses whitespace runs to single spaces and trims a
// trailing semicolon, so multi-line queries scan like one-liners.
func normalizeSpace(q string) string {
	fields := strings.Fields(q)
	out := strings.Join(fields, " ")
	out = strings.TrimSuffix(out, ";")
	return strings.TrimSpace(out)
}

// maskLiterals blanks the contents of single-quoted string literals,
// preserving length so indexes line up with the source text.
func maskLiterals(q string) string {
	b := []byte(q)
	in := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\'':
			in = !in
		case in:
			b[i] = ' '
		}
	}
	return string(b)
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// indexKeyword finds kw in upper at a word boundary, starting at from.
// Returns -1 when absent.
func indexKeyword(upper, kw string, from int) int {
	for i := from; i+len(kw) <= len(upper); {
		j := strings.Index(upper[i:], kw)
		if j < 0 {
			return -1
		}
		pos := i + j
		end := pos + len(kw)
		if (pos == 0 || !isIdentByte(upper[pos-1])) && (end == len(upper) || !isIdentByte(upper[end])) {
			return pos
		}
		i = pos + 1
	}
	return -1
}

// clauseSpan isolates the text between a clause keyword and the next
// boundary keyword (or end of query). extra boundaries apply on top of
// the shared set. An absent clause yields "".
func clauseSpan(upper, norm, kw string, extra []string) string {
	pos := indexKeyword(upper, kw, 0)
	if pos < 0 {
		return ""
	}
	start := pos + len(kw)
	end := len(upper)
	for _, b := range append(append([]string{}, clauseBoundaries...), extra...) {
		if b == kw {
			continue
		}
		if i := indexKeyword(upper, b, start); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(norm[start:end])
}

// tableRefs extracts {table, alias} pairs from the FROM list and every
// JOIN clause, plus the JOIN ... ON conditions.
func tableRefs(upper, norm string) ([]TableRef, []JoinClause) {
	var tables []TableRef
	var joins []JoinClause

	if from := indexKeyword(upper, "FROM", 0); from >= 0 {
		c := &cursor{upper: upper, text: norm, pos: from + len("FROM")}
		for {
			ref, ok := c.readTableRef()
			if !ok {
				break
			}
			tables = append(tables, ref)
			c.skipSpace()
			if c.peek() != ',' {
				break
			}
			c.pos++
		}
	}

	for pos := 0; ; {
		j := indexKeyword(upper, "JOIN", pos)
		if j < 0 {
			break
		}
		pos = j + len("JOIN")

		kind := joinKindBefore(upper, j)
		c := &cursor{upper: upper, text: norm, pos: pos}
		ref, ok := c.readTableRef()
		if !ok {
			continue
		}
		tables = append(tables, ref)

		cond := ""
		if kind != "CROSS" {
			on := indexKeyword(upper, "ON", c.pos)
			nj := indexKeyword(upper, "JOIN", c.pos)
			if on >= 0 && (nj < 0 || on < nj) {
				cond = clauseSpanAt(upper, norm, on+len("ON"))
			}
		}
		joins = append(joins, JoinClause{Kind: kind, Table: ref, Condition: cond})
	}
	return tables, joins
}

// clauseSpanAt isolates an ON condition starting at start, stopping at
// the next JOIN, WHERE, or shared boundary keyword.
func clauseSpanAt(upper, norm string, start int) string {
	end := len(upper)
	for _, b := range append(append([]string{}, clauseBoundaries...), "WHERE", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS") {
		if i := indexKeyword(upper, b, start); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(norm[start:end])
}

// joinKindBefore inspects the words preceding a JOIN keyword.
func joinKindBefore(upper string, joinPos int) string {
	before := strings.TrimRight(upper[:joinPos], " ")
	words := strings.Split(before, " ")
	last := ""
	if len(words) > 0 {
		last = words[len(words)-1]
	}
	if last == "OUTER" && len(words) > 1 {
		last = words[len(words)-2]
	}
	switch last {
	case "INNER", "LEFT", "RIGHT", "FULL", "CROSS":
		return last
	}
	return "INNER"
}

// cursor is a small token reader over the masked/uppercased text, used
// only for FROM/JOIN table reference parsing.
type cursor struct {
	upper string
	text  string
	pos   int
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.upper) && c.upper[c.pos] == ' ' {
		c.pos++
	}
}

func (c *cursor) peek() byte {
	if c.pos >= len(c.upper) {
		return 0
	}
	return c.upper[c.pos]
}

// readIdent consumes a possibly schema-qualified identifier and returns
// its original-case text.
func (c *cursor) readIdent() string {
	c.skipSpace()
	start := c.pos
	if c.pos >= len(c.upper) || !isIdentStart(c.upper[c.pos]) {
		return ""
	}
	for c.pos < len(c.upper) && isIdentByte(c.upper[c.pos]) {
		c.pos++
	}
	for c.pos+1 < len(c.upper) && c.upper[c.pos] == '.' && isIdentStart(c.upper[c.pos+1]) {
		c.pos++
		for c.pos < len(c.upper) && isIdentByte(c.upper[c.pos]) {
			c.pos++
		}
	}
	return c.text[start:c.pos]
}

// Words that cannot be table aliases.
var reservedAfterTable = map[string]struct{}{
	"ON": {}, "WHERE": {}, "JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {},
	"FULL": {}, "CROSS": {}, "OUTER": {}, "GROUP": {}, "ORDER": {}, "HAVING": {},
	"LIMIT": {}, "OFFSET": {}, "FETCH": {}, "WINDOW": {}, "FOR": {}, "UNION": {},
	"USING": {}, "SET": {}, "AND": {}, "OR": {},
}

// readTableRef parses `table`, `table alias`, or `table AS alias`.
// Derived tables (subqueries) are skipped; that is a documented
// limitation of the heuristic pass.
func (c *cursor) readTableRef() (TableRef, bool) {
	c.skipSpace()
	if c.peek() == '(' {
		return TableRef{}, false
	}
	name := c.readIdent()
	if name == "" {
		return TableRef{}, false
	}
	save := c.pos
	c.skipSpace()
	asPos := c.pos
	next := c.readIdent()
	if strings.ToUpper(next) == "AS" {
		next = c.readIdent()
		asPos = -1
	}
	if next == "" {
		c.pos = save
		return TableRef{Name: name, Alias: baseName(name)}, true
	}
	if _, reserved := reservedAfterTable[strings.ToUpper(next)]; reserved && asPos != -1 {
		c.pos = save
		return TableRef{Name: name, Alias: baseName(name)}, true
	}
	return TableRef{Name: name, Alias: next}, true
}

// baseName strips a schema qualifier: app_schema.users -> users.
func baseName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[i+1:]
	}
	return table
}
