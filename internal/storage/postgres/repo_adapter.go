package postgres

import (
	"context"

	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// sink adapts *Repository to storage.Sink.
type sink struct {
	repo    *Repository
	closeFn func()
}

var _ storage.Sink = (*sink)(nil)

func (s *sink) Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	n, err := s.repo.ReplaceTable(ctx, table, rows)
	if err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}
	return n, nil
}

func (s *sink) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// init registers the "postgres" backend. storage.Config.Prefix names the
// target schema.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Schema: cfg.Prefix})
		if err != nil {
			return nil, err
		}
		return &sink{repo: r, closeFn: closeFn}, nil
	})
}
