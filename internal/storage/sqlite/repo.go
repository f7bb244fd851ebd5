// Package sqlite implements a SQLite-backed storage.Sink using database/sql.
// Each table is replaced inside one transaction: DROP, CREATE, prepared
// INSERTs, then the partition index. SQLite has no bulk-load API like
// Postgres COPY, but a single transaction keeps moderate volumes fast.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sparkify/internal/ddl"
	"sparkify/internal/schema"

	_ "modernc.org/sqlite"
)

// Repository writes star-schema tables into a SQLite database.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// ReplaceTable drops and recreates table, then inserts rows. Nothing is
// visible to readers until the transaction commits.
func (r *Repository) ReplaceTable(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	td := ddl.FromSchema(table, ddl.SQLite)
	create, err := ddl.BuildCreateTableSQL(td)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, ddl.DropTableSQL(td)); err != nil {
		return 0, fmt.Errorf("sqlite: drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("sqlite: create: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, ddl.InsertSQL(td))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(td.Columns) {
			return 0, fmt.Errorf("sqlite: row length %d != columns length %d", len(row), len(td.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if idx, ok := ddl.CreateIndexSQL(td); ok {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return 0, fmt.Errorf("sqlite: index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}
