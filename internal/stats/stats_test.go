package stats

import "testing"

func TestLookupFallsBackToDefault(t *testing.T) {
	cfg := Default()

	ts, found := cfg.Lookup("orders")
	if !found || ts.RowCount != 5_000_000 {
		t.Errorf("Expected orders stats, got %+v found=%v", ts, found)
	}

	ts, found = cfg.Lookup("no_such_table")
	if found {
		t.Error("Expected found=false for unknown table")
	}
	if ts.RowCount != 100_000 {
		t.Errorf("Expected default row count 100000, got %d", ts.RowCount)
	}
}

func TestLookupNormalizesNames(t *testing.T) {
	cfg := Default()

	for _, name := range []string{"Customers", "app_schema.customers", "APP.CUSTOMERS"} {
		ts, found := cfg.Lookup(name)
		if !found || ts.RowCount != 1_000_000 {
			t.Errorf("Lookup(%q): expected customers stats, got %+v found=%v", name, ts, found)
		}
	}
}

func TestWithTablesLeavesOriginalUntouched(t *testing.T) {
	cfg := Default()
	derived := cfg.WithTables(map[string]TableStats{
		"customers": {RowCount: 7, AvgRowSize: 10},
		"new_table": {RowCount: 99},
	})

	if ts, _ := cfg.Lookup("customers"); ts.RowCount != 1_000_000 {
		t.Errorf("Original config mutated: %+v", ts)
	}
	if ts, _ := derived.Lookup("customers"); ts.RowCount != 7 {
		t.Errorf("Expected override in derived config, got %+v", ts)
	}
	if ts, found := derived.Lookup("new_table"); !found || ts.RowCount != 99 {
		t.Errorf("Expected new table in derived config, got %+v found=%v", ts, found)
	}
}

func TestSelectivityValuesInRange(t *testing.T) {
	s := Default().Selectivity
	for name, v := range map[string]float64{
		"equality_unique":     s.EqualityUnique,
		"equality_non_unique": s.EqualityNonUnique,
		"range_small":         s.RangeSmall,
		"range_large":         s.RangeLarge,
		"like_prefix":         s.LikePrefix,
		"like_other":          s.LikeOther,
		"default_filter":      s.DefaultFilter,
	} {
		if v <= 0 || v > 1 {
			t.Errorf("%s = %v out of (0,1]", name, v)
		}
	}
}
