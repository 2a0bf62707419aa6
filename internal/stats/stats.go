package stats

import "strings"

// Frequency buckets used for table write load and query profiles.
type Frequency string

const (
	FrequencyUnknown Frequency = ""
	FrequencyLow     Frequency = "low"
	FrequencyMedium  Frequency = "medium"
	FrequencyHigh    Frequency = "high"
)

// TableStats holds the static per-table statistics the estimator works
// from. In a real system these would come from the database catalog; here
// they are defaults that callers may override.
type TableStats struct {
	RowCount       int64     `json:"row_count"`
	AvgRowSize     int       `json:"avg_row_size"`
	WriteFrequency Frequency `json:"write_frequency,omitempty"`
}

// Selectivity maps predicate shapes to the fraction of rows they are
// assumed to retain. All values must stay in [0, 1].
type Selectivity struct {
	EqualityUnique    float64 `json:"equality_unique"`
	EqualityNonUnique float64 `json:"equality_non_unique"`
	RangeSmall        float64 `json:"range_small"`
	RangeLarge        float64 `json:"range_large"`
	LikePrefix        float64 `json:"like_prefix"`
	LikeOther         float64 `json:"like_suffix_infix"`
	DefaultFilter     float64 `json:"default_filter"`
}

// Config is the process-wide, read-only heuristic configuration.
// Construct it once and pass it by reference; it is never mutated after
// construction and is safe to share across concurrent analyses.
type Config struct {
	Tables      map[string]TableStats
	Selectivity Selectivity

	// JoinSelectivityFactor applies to inner joins with no detectable
	// PK-FK shape.
	JoinSelectivityFactor float64
}

// DefaultTableKey is the fallback entry consulted for unknown tables.
const DefaultTableKey = "default_table"

// Default returns the built-in statistics and selectivity heuristics.
func Default() *Config {
	return &Config{
		Tables: map[string]TableStats{
			"customers":     {RowCount: 1_000_000, AvgRowSize: 150, WriteFrequency: FrequencyMedium},
			"orders":        {RowCount: 5_000_000, AvgRowSize: 100, WriteFrequency: FrequencyHigh},
			"order_items":   {RowCount: 20_000_000, AvgRowSize: 50, WriteFrequency: FrequencyHigh},
			"products":      {RowCount: 50_000, AvgRowSize: 200, WriteFrequency: FrequencyLow},
			"employees":     {RowCount: 10_000, AvgRowSize: 180, WriteFrequency: FrequencyLow},
			"departments":   {RowCount: 100, AvgRowSize: 80, WriteFrequency: FrequencyLow},
			DefaultTableKey: {RowCount: 100_000, AvgRowSize: 100},
		},
		Selectivity: Selectivity{
			EqualityUnique:    0.0001,
			EqualityNonUnique: 0.1,
			RangeSmall:        0.05,
			RangeLarge:        0.3,
			LikePrefix:        0.05,
			LikeOther:         0.2,
			DefaultFilter:     0.25,
		},
		JoinSelectivityFactor: 0.01,
	}
}

// WithTables returns a copy of the config with the given per-table
// overrides merged in. The receiver is left untouched.
func (c *Config) WithTables(overrides map[string]TableStats) *Config {
	out := *c
	out.Tables = make(map[string]TableStats, len(c.Tables)+len(overrides))
	for name, ts := range c.Tables {
		out.Tables[name] = ts
	}
	for name, ts := range overrides {
		out.Tables[Normalize(name)] = ts
	}
	return &out
}

// Lookup resolves statistics for a table, falling back to the default
// entry. found reports whether the table had its own entry.
func (c *Config) Lookup(table string) (ts TableStats, found bool) {
	ts, found = c.Tables[Normalize(table)]
	if !found {
		ts = c.Tables[DefaultTableKey]
	}
	return ts, found
}

// Normalize strips a schema qualifier and lowercases the table name, so
// that app_schema.Users and users resolve to the same statistics entry.
func Normalize(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return strings.ToLower(table)
}
