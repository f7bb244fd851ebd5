package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens one feed file from the local disk.
type Local struct{ path string }

// NewLocal binds a Local source to path. A Local may be opened concurrently.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the path the source reads from.
func (l *Local) Name() string { return l.path }

// Open returns the file for reading.
//
// A context that is already done short-circuits without touching the disk.
// Filesystem errors carry the path and still satisfy errors.Is checks such as
// errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}
