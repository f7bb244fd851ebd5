// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs each backend's init function, which registers its factory with
// the storage package. Importing it makes these kinds available:
//
//   - "memory"   (sparkify/internal/storage, always linked)
//   - "parquet"  (sparkify/internal/storage/parquet)
//   - "s3"       (sparkify/internal/storage/s3)
//   - "duckdb"   (sparkify/internal/storage/duckdb)
//   - "postgres" (sparkify/internal/storage/postgres)
//   - "mssql"    (sparkify/internal/storage/mssql)
//   - "sqlite"   (sparkify/internal/storage/sqlite)
//
// Typical usage (in cmd/etl/main.go):
//
//	import _ "sparkify/internal/storage/all"
//
//	sink, err := storage.New(ctx, storage.Config{Kind: cfg.Output.Kind, Root: cfg.Output.Root})
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "sparkify/internal/storage/duckdb"
	_ "sparkify/internal/storage/mssql"
	_ "sparkify/internal/storage/parquet"
	_ "sparkify/internal/storage/postgres"
	_ "sparkify/internal/storage/s3"
	_ "sparkify/internal/storage/sqlite"
)
