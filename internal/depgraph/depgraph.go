package depgraph

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/leengari/query-advisor/internal/sqltext"
)

// JoinKind enumerates the join kinds the analyzer can infer from the
// query text.
type JoinKind int

const (
	Inner JoinKind = iota
	Left
	Right
	Full
	Cross
)

func (k JoinKind) String() string {
	switch k {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Full:
		return "FULL"
	case Cross:
		return "CROSS"
	default:
		return "INNER"
	}
}

// MarshalText makes join kinds readable in JSON reports.
func (k JoinKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KindFromText maps the segmentation pass's textual kind to a JoinKind.
func KindFromText(s string) JoinKind {
	switch strings.ToUpper(s) {
	case "LEFT":
		return Left
	case "RIGHT":
		return Right
	case "FULL":
		return Full
	case "CROSS":
		return Cross
	default:
		return Inner
	}
}

// Edge is one inferred join relationship between two distinct tables.
// Left/Right carry canonical (schema-stripped) table names; Condition is
// the normalized predicate text.
type Edge struct {
	Left      string   `json:"left"`
	Right     string   `json:"right"`
	Kind      JoinKind `json:"kind"`
	Condition string   `json:"condition"`
}

// Analysis is the dependency graph for a single query: one node per
// distinct table, one edge per distinct cross-table equality predicate.
// It is built once and read-only thereafter.
type Analysis struct {
	QueryID string
	Tables  []string
	Aliases map[string]string
	Edges   []Edge

	g graph.Graph[string, string]
}

// Matches `alias.column = alias.column` equality predicates anywhere in
// the query, covering both ON conditions and WHERE-style joins.
var joinPredicate = regexp.MustCompile(`(\w+)\.(\w+)\s*=\s*(\w+)\.(\w+)`)

// Analyze extracts tables, aliases, and join predicates from the
// segmented query and builds the undirected dependency graph. Failures
// to find tables or predicates produce an empty or edgeless graph plus a
// log entry, never an error.
func Analyze(queryID string, seg sqltext.Segments, logger *slog.Logger) *Analysis {
	a := &Analysis{
		QueryID: queryID,
		Aliases: make(map[string]string),
		g:       graph.New(graph.StringHash),
	}

	tableSet := map[string]struct{}{}
	for _, ref := range seg.Tables {
		base := baseName(ref.Name)
		alias := ref.Alias
		if alias == "" {
			alias = base
		}
		a.Aliases[alias] = base
		tableSet[base] = struct{}{}
	}
	if len(tableSet) == 0 {
		logger.Warn("no tables found in query", "query_id", queryID)
		return a
	}

	for t := range tableSet {
		a.Tables = append(a.Tables, t)
		_ = a.g.AddVertex(t)
	}
	sort.Strings(a.Tables)

	// Scan the masked text so predicates inside string literals never
	// fabricate edges. Matches contain no quotable characters, so the
	// matched text is identical in the unmasked query.
	seen := map[string]struct{}{}
	for _, m := range joinPredicate.FindAllStringSubmatch(seg.Masked(), -1) {
		alias1, col1, alias2, col2 := m[1], m[2], m[3], m[4]
		t1, ok1 := a.Aliases[alias1]
		t2, ok2 := a.Aliases[alias2]
		if !ok1 || !ok2 {
			continue
		}
		if t1 == t2 {
			// Self-joins are excluded from the dependency graph.
			continue
		}
		cond := fmt.Sprintf("%s.%s = %s.%s", alias1, col1, alias2, col2)
		key := edgeKey(t1, t2, cond)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		e := Edge{Left: t1, Right: t2, Kind: kindFor(seg, m[0]), Condition: cond}
		a.Edges = append(a.Edges, e)
		if err := a.g.AddEdge(t1, t2, graph.EdgeData(e)); err != nil {
			// Parallel predicates between the same pair: the first edge
			// stays authoritative for traversal, Edges keeps them all.
			logger.Debug("duplicate graph edge", "query_id", queryID, "left", t1, "right", t2, "error", err)
		}
	}

	if len(a.Edges) == 0 && len(a.Tables) > 1 {
		logger.Warn("multiple tables but no join predicates found",
			"query_id", queryID, "tables", a.Tables)
	}
	logger.Info("dependency graph built",
		"query_id", queryID, "nodes", len(a.Tables), "edges", len(a.Edges))
	return a
}

// kindFor finds the JOIN clause whose ON span contains the raw predicate
// text and returns its kind; predicates outside any ON span (WHERE-style
// joins) read as INNER.
func kindFor(seg sqltext.Segments, raw string) JoinKind {
	for _, j := range seg.Joins {
		if j.Condition != "" && strings.Contains(j.Condition, raw) {
			return KindFromText(j.Kind)
		}
	}
	return Inner
}

// EdgeBetween reports the edge connecting two tables, in either
// direction.
func (a *Analysis) EdgeBetween(x, y string) (Edge, bool) {
	ge, err := a.g.Edge(x, y)
	if err != nil {
		return Edge{}, false
	}
	e, ok := ge.Properties.Data.(Edge)
	if !ok {
		return Edge{}, false
	}
	return e, true
}

// ResolveColumn rewrites an alias-qualified column to its table-
// qualified form; unqualified or unknown-alias columns pass through.
func (a *Analysis) ResolveColumn(col string) string {
	i := strings.IndexByte(col, '.')
	if i < 0 {
		return col
	}
	if table, ok := a.Aliases[col[:i]]; ok {
		return table + col[i:]
	}
	return col
}

func edgeKey(t1, t2, cond string) string {
	if t2 < t1 {
		t1, t2 = t2, t1
	}
	return t1 + "\x00" + t2 + "\x00" + cond
}

func baseName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[i+1:]
	}
	return table
}
