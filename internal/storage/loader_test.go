package storage

import (
	"context"
	"errors"
	"testing"
)

func intRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i, "x"}
	}
	return rows
}

// TestLoadBatches_Basic verifies rows are grouped into batches and copyFn is
// called with the expected counts.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	var sizes []int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		sizes = append(sizes, len(rows))
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c1", "c2"}, intRows(7), 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes %v, want [3 3 1]", sizes)
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error is returned
// and no further batches are sent.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c"}, intRows(5), 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if batches != 2 {
		t.Fatalf("batches = %d, want 2", batches)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
}

func TestLoadBatches_Empty(t *testing.T) {
	t.Parallel()

	called := false
	total, err := LoadBatches(context.Background(), nil, nil, 10, func(context.Context, []string, [][]any) (int64, error) {
		called = true
		return 0, nil
	})
	if err != nil || total != 0 || called {
		t.Fatalf("LoadBatches(empty) = %d, %v (called=%v)", total, err, called)
	}
}

func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		cancel()
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(ctx, nil, intRows(4), 2, copyFn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
}

func TestLoadBatches_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadBatches(context.Background(), nil, nil, 0, func(context.Context, []string, [][]any) (int64, error) { return 0, nil }); err == nil {
		t.Fatal("batchSize=0: want error")
	}
	if _, err := LoadBatches(context.Background(), nil, nil, 1, nil); err == nil {
		t.Fatal("nil copyFn: want error")
	}
}
