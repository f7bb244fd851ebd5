package storage

import (
	"context"
	"fmt"
	"time"

	"sparkify/internal/logging"
)

// DefaultBatchSize is the number of rows SQL sinks send per bulk call.
const DefaultBatchSize = 5000

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to columns order) and return the number of rows
// reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches splits rows into batches of batchSize and calls copyFn for each
// non-empty batch, in order. It returns the total reported by copyFn and the
// first error encountered; the context is checked between batches.
//
// Progress is logged at debug level on each successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))

		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			logging.Warn().Err(err).Int64("batch_rows", n).Int64("total", total).Msg("loader: copy failed")
			return total, err
		}

		batches++
		elapsed := time.Since(start)
		rps := float64(0)
		if elapsed > 0 {
			rps = float64(total) / elapsed.Seconds()
		}
		logging.Debug().
			Int("batch", batches).
			Int64("inserted", n).
			Int64("total", total).
			Float64("rps", rps).
			Msg("loader: batch flushed")
	}
	return total, nil
}
