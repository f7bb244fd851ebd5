package ingest

import "github.com/goccy/go-json"

// IngestError records one input file that was skipped.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string { return "ingest " + e.Path + ": " + e.Err.Error() }

func (e *IngestError) Unwrap() error { return e.Err }

// MarshalJSON renders the error as {"path":..., "error":...} for run reports.
func (e *IngestError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, e.Err.Error()})
}
