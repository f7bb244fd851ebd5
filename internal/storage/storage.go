// Package storage defines the partitioned table sink used to persist the
// star schema, plus a registry of sink backends.
//
// Backends register a Factory under a kind name from their init function;
// importing sparkify/internal/storage/all links every built-in backend.
// Callers stay backend-agnostic and only see Sink.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sparkify/internal/schema"
)

// Sink persists whole tables. Write replaces any data previously written for
// the same table name; it never appends.
type Sink interface {
	// Write stores rows (values in table.Columns order) laid out by
	// table.PartitionBy, and returns the number of rows written.
	Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error)
	Close() error
}

// Config selects and configures a sink backend.
type Config struct {
	Kind string

	// Root is the output directory for file-based sinks and the staging
	// directory for the s3 sink.
	Root string

	// DSN is the database connection string for SQL sinks and the duckdb
	// database path ("" means in-memory).
	DSN string

	Bucket   string
	Prefix   string
	Region   string
	Endpoint string

	// Compression is the parquet codec: snappy (default), gzip, zstd or none.
	Compression string
}

// Factory opens a Sink for cfg.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// again replaces the previous factory.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[kind] = f
}

// New opens the sink registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	regMu.RLock()
	f, ok := registry[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WriteError reports a failed table write. It is fatal for a run.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write table %s: %v", e.Table, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }
