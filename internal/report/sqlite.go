package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const reportsSchema = `
CREATE TABLE IF NOT EXISTS reports (
    query_id   TEXT NOT NULL,
    kind       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    payload    TEXT NOT NULL,
    PRIMARY KEY (query_id, kind)
);`

// SQLiteSink stores reports in a local sqlite database, one row per
// query and kind. Re-running an analysis replaces the previous row.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (or creates) the database at path and ensures
// the reports table exists.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report db %s: %w", path, err)
	}
	if _, err := db.Exec(reportsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write implements Sink.
func (ss *SQLiteSink) Write(ctx context.Context, queryID string, kind Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s report: %w", kind, err)
	}
	_, err = ss.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (query_id, kind, created_at, payload) VALUES (?, ?, ?, ?)`,
		queryID, string(kind), time.Now().UTC().Format(time.RFC3339), string(data),
	)
	if err != nil {
		return fmt.Errorf("store %s report: %w", kind, err)
	}
	return nil
}

// Read loads one stored report payload, for tooling and tests.
func (ss *SQLiteSink) Read(ctx context.Context, queryID string, kind Kind) ([]byte, error) {
	var payload string
	err := ss.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE query_id = ? AND kind = ?`,
		queryID, string(kind),
	).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("load %s report: %w", kind, err)
	}
	return []byte(payload), nil
}

// Close releases the underlying database handle.
func (ss *SQLiteSink) Close() error {
	return ss.db.Close()
}

var _ Sink = (*SQLiteSink)(nil)
