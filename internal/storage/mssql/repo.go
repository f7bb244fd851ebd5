// Package mssql implements a Microsoft SQL Server storage.Sink using the
// go-mssqldb bulk copy API. Each table is replaced in one transaction: DROP,
// CREATE, batched bulk copy, then the partition index.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"sparkify/internal/ddl"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

// Config holds MSSQL sink configuration.
type Config struct {
	DSN string

	// Schema optionally qualifies table names, e.g. "dbo".
	Schema string

	// BatchSize is the number of rows per bulk copy; <= 0 uses storage.DefaultBatchSize.
	BatchSize int
}

// Repository writes star-schema tables into SQL Server.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// TableDef qualifies the star-schema table with the configured schema.
func (r *Repository) TableDef(table schema.Table) ddl.TableDef {
	td := ddl.FromSchema(table, ddl.MSSQL)
	if s := strings.TrimSpace(r.cfg.Schema); s != "" {
		td.FQN = s + "." + td.FQN
	}
	return td
}

// ReplaceTable drops and recreates table, then bulk copies rows into it.
func (r *Repository) ReplaceTable(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	td := r.TableDef(table)
	create, err := ddl.BuildCreateTableSQL(td)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, ddl.DropTableSQL(td)); err != nil {
		return 0, fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}

	batch := r.cfg.BatchSize
	if batch <= 0 {
		batch = storage.DefaultBatchSize
	}
	target := ddl.MSSQL.QuoteFQN(td.FQN)
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return bulkCopy(ctx, tx, target, columns, rows)
	}
	n, err := storage.LoadBatches(ctx, table.ColumnNames(), rows, batch, copyFn)
	if err != nil {
		return 0, err
	}

	if idx, ok := ddl.CreateIndexSQL(td); ok {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return 0, fmt.Errorf("index: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// bulkCopy sends one batch through mssql.CopyIn; the final argument-less Exec
// flushes the batch and reports the row count.
func bulkCopy(ctx context.Context, tx *sql.Tx, target string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(target, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
