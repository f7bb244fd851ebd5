package storage

import (
	"context"
	"sync"

	"sparkify/internal/schema"
)

func init() {
	Register("memory", func(ctx context.Context, cfg Config) (Sink, error) {
		return NewMemory(), nil
	})
}

// Memory keeps written tables in memory. It backs dry runs and tests.
type Memory struct {
	mu     sync.Mutex
	tables map[string][][]any
	order  []string
	closed bool
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{tables: map[string][][]any{}}
}

// Write replaces the stored rows for table.Name.
func (m *Memory) Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.tables[table.Name]; !seen {
		m.order = append(m.order, table.Name)
	}
	m.tables[table.Name] = cp
	return int64(len(rows)), nil
}

// Rows returns the rows last written for table, or nil.
func (m *Memory) Rows(table string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table]
}

// Tables returns table names in first-write order.
func (m *Memory) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
