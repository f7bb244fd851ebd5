// Package duckdb writes star-schema tables through an embedded DuckDB
// database. Each table is loaded into a DuckDB table of the same name and
// exported with COPY ... (FORMAT PARQUET, PARTITION_BY ...), so the output is
// a Hive-partitioned parquet directory written by DuckDB itself. When DSN
// names a database file the loaded tables remain queryable there.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sparkify/internal/ddl"
	"sparkify/internal/logging"
	"sparkify/internal/schema"
	"sparkify/internal/storage"

	_ "github.com/duckdb/duckdb-go/v2"
)

func init() {
	storage.Register("duckdb", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg.DSN, cfg.Root, cfg.Compression)
	})
}

// Sink is a DuckDB-backed storage.Sink.
type Sink struct {
	db          *sql.DB
	root        string
	compression string
}

// New opens DuckDB at dsn ("" is in-memory) and exports under root.
func New(ctx context.Context, dsn, root, compression string) (*Sink, error) {
	if root == "" {
		return nil, fmt.Errorf("duckdb: output root is required")
	}
	codec, err := parseCompression(compression)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: create root: %w", err)
	}
	return &Sink{db: db, root: root, compression: codec}, nil
}

func parseCompression(name string) (string, error) {
	switch c := strings.ToLower(strings.TrimSpace(name)); c {
	case "":
		return "snappy", nil
	case "snappy", "gzip", "zstd":
		return c, nil
	case "none", "uncompressed":
		return "uncompressed", nil
	default:
		return "", fmt.Errorf("duckdb: unsupported compression %q", name)
	}
}

// Write loads rows into a DuckDB table named after the star-schema table and
// exports it to <root>/<table>.
func (s *Sink) Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	if err := s.load(ctx, table, rows); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}

	dir := filepath.Join(s.root, table.Name)
	if err := os.RemoveAll(dir); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}
	if _, err := s.db.ExecContext(ctx, CopySQL(table, dir, s.compression)); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: fmt.Errorf("copy to parquet: %w", err)}
	}

	logging.Debug().Str("table", table.Name).Str("dir", dir).Int("rows", len(rows)).Msg("duckdb: table exported")
	return int64(len(rows)), nil
}

func (s *Sink) load(ctx context.Context, table schema.Table, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	td := ddl.FromSchema(table, ddl.DuckDB)
	create, err := ddl.BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ddl.DropTableSQL(td)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, ddl.InsertSQL(td))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// CopySQL renders the COPY statement exporting table to dir.
func CopySQL(table schema.Table, dir, compression string) string {
	target := filepath.Join(dir, storage.PartFileName(0, ".parquet"))
	opts := []string{"FORMAT PARQUET", "COMPRESSION '" + compression + "'"}
	if len(table.PartitionBy) > 0 {
		target = dir
		parts := make([]string, len(table.PartitionBy))
		for i, p := range table.PartitionBy {
			parts[i] = ddl.DuckDB.Quote(p)
		}
		opts = append(opts, "PARTITION_BY ("+strings.Join(parts, ", ")+")", "OVERWRITE_OR_IGNORE true")
	}
	return fmt.Sprintf("COPY %s TO %s (%s)", ddl.DuckDB.Quote(table.Name), quoteLiteral(target), strings.Join(opts, ", "))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Close closes the database.
func (s *Sink) Close() error { return s.db.Close() }
