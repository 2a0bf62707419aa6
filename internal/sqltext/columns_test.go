package sqltext

import (
	"reflect"
	"testing"
)

const sampleQuery = `SELECT c.name, COUNT(o.id)
FROM customers c
JOIN orders o ON c.id = o.customer_id
WHERE c.country = 'DE' AND o.total > 100
GROUP BY c.name
ORDER BY c.name DESC`

func TestWhereColumns(t *testing.T) {
	s := Segment(sampleQuery)
	want := []string{"c.country", "o.total"}
	if got := s.WhereColumns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestJoinColumns(t *testing.T) {
	s := Segment(sampleQuery)
	want := []string{"c.id", "o.customer_id"}
	if got := s.JoinColumns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestOrderByColumnsSkipFunctions(t *testing.T) {
	s := Segment("SELECT * FROM users ORDER BY LOWER(email), created_at DESC")
	want := []string{"created_at"}
	if got := s.OrderByColumns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestGroupByColumns(t *testing.T) {
	s := Segment("SELECT dept, COUNT(*) FROM employees GROUP BY dept, region ORDER BY dept")
	want := []string{"dept", "region"}
	if got := s.GroupByColumns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestColumnsIgnoreLiteralContents(t *testing.T) {
	s := Segment("SELECT * FROM t WHERE note = 'secret.column AND other'")
	want := []string{"note"}
	if got := s.WhereColumns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestWhereConditionsTopLevelSplit(t *testing.T) {
	s := Segment("SELECT * FROM t WHERE (t.a = 1 OR t.b = 2) AND t.c = 3")
	want := []string{"(t.a = 1 OR t.b = 2)", "t.c = 3"}
	if got := s.WhereConditions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestWhereANDGroups(t *testing.T) {
	s := Segment("SELECT * FROM users u WHERE u.status = 'active' AND u.created_at > '2024-01-01' OR u.email LIKE 'a%'")
	want := [][]string{
		{"u.status", "u.created_at"},
		{"u.email"},
	}
	if got := s.WhereANDGroups(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestMentionedColumns(t *testing.T) {
	s := Segment("SELECT u.name, COUNT(o.id) FROM users u JOIN orders o ON u.id = o.user_id")
	got := s.MentionedColumns()

	want := map[string]bool{"u.name": true, "u.id": true, "o.user_id": true}
	for col := range want {
		found := false
		for _, g := range got {
			if g == col {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %q among mentions, got %v", col, got)
		}
	}
	for _, g := range got {
		if g == "SELECT" || g == "FROM" || g == "COUNT" {
			t.Errorf("Keyword %q leaked into mentions", g)
		}
	}
}

func TestCollectUsage(t *testing.T) {
	s := Segment(sampleQuery)
	usage := CollectUsage(s)

	byCol := map[string]Usage{}
	for _, u := range usage {
		byCol[u.Column] = u
	}

	if u := byCol["c.country"]; !u.InWhere || u.InJoin || u.InOrder || u.InGroup {
		t.Errorf("c.country: expected WHERE only, got %+v", u)
	}
	if u := byCol["c.id"]; !u.InJoin {
		t.Errorf("c.id: expected join usage, got %+v", u)
	}
	if u := byCol["c.name"]; !u.InOrder || !u.InGroup {
		t.Errorf("c.name: expected order and group usage, got %+v", u)
	}
}
