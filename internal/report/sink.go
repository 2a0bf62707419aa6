package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Sink persists a report payload for one query under one kind.
type Sink interface {
	Write(ctx context.Context, queryID string, kind Kind, payload any) error
}

// FileSink writes each report as an indented JSON file named
// <queryID>_<kind>.json inside its directory.
type FileSink struct {
	dir string
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Write implements Sink.
func (fs *FileSink) Write(_ context.Context, queryID string, kind Kind, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s report: %w", kind, err)
	}
	path := filepath.Join(fs.dir, fmt.Sprintf("%s_%s.json", queryID, kind))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s report: %w", kind, err)
	}
	return nil
}

// Path returns the file a report of the given kind is written to.
func (fs *FileSink) Path(queryID string, kind Kind) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s_%s.json", queryID, kind))
}

var _ Sink = (*FileSink)(nil)
