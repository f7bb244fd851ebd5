// Package datasource defines how raw input bytes are obtained.
package datasource

import (
	"context"
	"io"
)

// Source opens one raw input (a catalog or log file).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Named is a Source that can report where it reads from, for error reports.
type Named interface {
	Source
	Name() string
}
