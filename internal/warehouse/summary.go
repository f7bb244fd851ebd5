package warehouse

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sparkify/internal/ingest"

	"github.com/goccy/go-json"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// TableSummary describes one written table.
type TableSummary struct {
	Name       string        `json:"name"`
	Rows       int64         `json:"rows"`
	Partitions int           `json:"partitions"`
	Duration   time.Duration `json:"duration_ns"`
}

// Summary is the outcome of one Run. It doubles as the JSON run report.
type Summary struct {
	RunID     string        `json:"run_id"`
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`

	Catalog ingest.Report `json:"catalog"`
	Logs    ingest.Report `json:"logs"`

	PlayEvents       int              `json:"play_events"`
	Unmatched        int              `json:"unmatched_events"`
	Ambiguous        int              `json:"ambiguous_events"`
	AmbiguousSamples []AmbiguousMatch `json:"ambiguous_samples,omitempty"`

	Tables []TableSummary `json:"tables"`

	join JoinStats
}

// SkippedFiles is the total number of input files skipped by both readers.
func (s Summary) SkippedFiles() int {
	return s.Catalog.SkippedFiles + s.Logs.SkippedFiles
}

// TableRows returns rows written for table and whether it was written.
func (s Summary) TableRows(table string) (int64, bool) {
	for _, t := range s.Tables {
		if t.Name == table {
			return t.Rows, true
		}
	}
	return 0, false
}

// WriteFile stores the summary as indented JSON at path, creating parent
// directories as needed.
func (s Summary) WriteFile(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
