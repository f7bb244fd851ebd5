// Package postgres implements a Postgres storage.Sink using pgx v5. Each
// table is replaced in one transaction: DROP, CREATE, batched COPY, then the
// partition index.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sparkify/internal/ddl"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

// Config holds Postgres sink configuration.
type Config struct {
	DSN string // connection string for pgxpool

	// Schema optionally qualifies table names, e.g. "analytics".
	Schema string

	// BatchSize is the number of rows per COPY; <= 0 uses storage.DefaultBatchSize.
	BatchSize int
}

// beginner is the slice of *pgxpool.Pool the repository needs.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository writes star-schema tables into Postgres.
type Repository struct {
	pool beginner
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// tableDef qualifies the star-schema table with the configured schema.
func (r *Repository) tableDef(table schema.Table) ddl.TableDef {
	td := ddl.FromSchema(table, ddl.Postgres)
	if s := strings.TrimSpace(r.cfg.Schema); s != "" {
		td.FQN = s + "." + td.FQN
	}
	return td
}

// ReplaceTable drops and recreates table, then COPYs rows into it.
func (r *Repository) ReplaceTable(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	td := r.tableDef(table)
	create, err := ddl.BuildCreateTableSQL(td)
	if err != nil {
		return 0, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, ddl.DropTableSQL(td)); err != nil {
		return 0, fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}

	batch := r.cfg.BatchSize
	if batch <= 0 {
		batch = storage.DefaultBatchSize
	}
	ident := splitFQN(td.FQN)
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		n, err := tx.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Detail != "" {
				return n, fmt.Errorf("copy: %s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
			}
			return n, fmt.Errorf("copy: %w", err)
		}
		return n, nil
	}
	n, err := storage.LoadBatches(ctx, table.ColumnNames(), rows, batch, copyFn)
	if err != nil {
		return 0, err
	}

	if idx, ok := ddl.CreateIndexSQL(td); ok {
		if _, err := tx.Exec(ctx, idx); err != nil {
			return 0, fmt.Errorf("index: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// splitFQN turns "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	out := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
