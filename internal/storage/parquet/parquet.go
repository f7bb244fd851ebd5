// Package parquet writes star-schema tables as Hive-partitioned parquet
// directories on the local filesystem:
//
//	<root>/<table>/<col>=<value>/.../part-00000.parquet
//
// A table is first written into a hidden staging directory next to its final
// location and swapped in once every partition file is complete, so a failed
// write never leaves a half-written table behind. Partition columns live in
// directory names only, as Spark and pyarrow expect.
package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sparkify/internal/logging"
	"sparkify/internal/schema"
	"sparkify/internal/storage"

	"github.com/xitongsys/parquet-go-source/local"
	pq "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Ext is the data file extension.
const Ext = ".parquet"

// parallelism is the parquet-go marshal goroutine count per file.
const parallelism = 4

func init() {
	storage.Register("parquet", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(cfg.Root, cfg.Compression)
	})
}

// Sink is a local parquet storage.Sink.
type Sink struct {
	root  string
	codec pq.CompressionCodec
}

// New returns a Sink writing under root.
func New(root, compression string) (*Sink, error) {
	if root == "" {
		return nil, fmt.Errorf("parquet: output root is required")
	}
	codec, err := ParseCodec(compression)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("parquet: create root: %w", err)
	}
	return &Sink{root: root, codec: codec}, nil
}

// ParseCodec maps a compression name onto a parquet codec; "" is snappy.
func ParseCodec(name string) (pq.CompressionCodec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return pq.CompressionCodec_SNAPPY, nil
	case "gzip":
		return pq.CompressionCodec_GZIP, nil
	case "zstd":
		return pq.CompressionCodec_ZSTD, nil
	case "none", "uncompressed":
		return pq.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("parquet: unsupported compression %q", name)
	}
}

// TableDir returns the final directory of table under root.
func TableDir(root, table string) string { return filepath.Join(root, table) }

// Write replaces <root>/<table> with the partitioned rows.
func (s *Sink) Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	final := TableDir(s.root, table.Name)
	staging := filepath.Join(s.root, "."+table.Name+".staging")

	if err := os.RemoveAll(staging); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}
	files, err := WriteDir(ctx, staging, table, rows, s.codec)
	if err != nil {
		_ = os.RemoveAll(staging)
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}
	if err := os.RemoveAll(final); err != nil {
		_ = os.RemoveAll(staging)
		return 0, &storage.WriteError{Table: table.Name, Err: fmt.Errorf("clear %s: %w", final, err)}
	}
	if err := os.Rename(staging, final); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: fmt.Errorf("publish %s: %w", final, err)}
	}

	logging.Debug().Str("table", table.Name).Str("dir", final).Int("files", len(files)).
		Msg("parquet: table published")
	return int64(len(rows)), nil
}

func (s *Sink) Close() error { return nil }

// WriteDir writes one parquet file per partition under dir and returns the
// written file paths relative to dir (slash-separated), in partition order.
// dir is created if missing.
func WriteDir(ctx context.Context, dir string, table schema.Table, rows [][]any, codec pq.CompressionCodec) ([]string, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	md := Metadata(table.DataColumns())

	var files []string
	for _, p := range storage.SplitPartitions(table, rows) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := storage.PartFileName(0, Ext)
		if p.Dir != "" {
			rel = p.Dir + "/" + rel
		}
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := writeFile(path, md, p.Rows, codec); err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		files = append(files, rel)
	}
	return files, nil
}

func writeFile(path string, md []string, rows [][]any, codec pq.CompressionCodec) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	pw, err := writer.NewCSVWriter(md, fw, parallelism)
	if err != nil {
		fw.Close()
		return fmt.Errorf("create writer: %w", err)
	}
	pw.CompressionType = codec

	for i, r := range rows {
		rec := make([]any, len(r))
		copy(rec, r)
		if err := pw.Write(rec); err != nil {
			fw.Close()
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finalize: %w", err)
	}
	return fw.Close()
}

// Metadata renders parquet-go CSV-writer schema tags for cols.
func Metadata(cols []schema.Column) []string {
	md := make([]string, 0, len(cols))
	for _, c := range cols {
		var tag string
		switch c.Kind {
		case schema.Int64:
			tag = "name=" + c.Name + ", type=INT64"
		case schema.Double:
			tag = "name=" + c.Name + ", type=DOUBLE"
		default:
			tag = "name=" + c.Name + ", type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"
		}
		if c.Nullable {
			tag += ", repetitiontype=OPTIONAL"
		}
		md = append(md, tag)
	}
	return md
}
