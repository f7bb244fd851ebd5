package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

func newFileSink(t *testing.T) (*sink, *Repository) {
	t.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "sparkify.db")})
	require.NoError(t, err)
	s := &sink{repo: r, closeFn: closeFn}
	t.Cleanup(func() { _ = s.Close() })
	return s, r
}

func TestReplaceTable_LoadsRowsAndIndex(t *testing.T) {
	ctx := context.Background()
	s, r := newFileSink(t)

	rows := [][]any{
		{"S1", "Song", "A1", int64(2000), 218.93},
		{"S2", "Other", "A1", int64(0), nil},
	}
	n, err := s.Write(ctx, schema.Songs, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT count(*) FROM "songs"`).Scan(&count))
	assert.Equal(t, 2, count)

	var dur *float64
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT duration FROM "songs" WHERE song_id = 'S2'`).Scan(&dur))
	assert.Nil(t, dur)

	var idx string
	require.NoError(t, r.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'songs'`).Scan(&idx))
	assert.Equal(t, "ix_songs_year_artist_id", idx)
}

func TestReplaceTable_OverwritesPreviousRun(t *testing.T) {
	ctx := context.Background()
	s, r := newFileSink(t)

	_, err := s.Write(ctx, schema.Users, [][]any{
		{"10", "A", "B", "F", "free"},
		{"11", "C", "D", "M", "paid"},
	})
	require.NoError(t, err)
	_, err = s.Write(ctx, schema.Users, [][]any{{"12", "E", "F", "F", "paid"}})
	require.NoError(t, err)

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT count(*) FROM "users"`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestReplaceTable_ReservedTableName(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileSink(t)

	_, err := s.Write(ctx, schema.Time, [][]any{
		{"2018-11-02 01:25:34", int64(1), int64(2), int64(44), int64(11), int64(2018), "Friday"},
	})
	require.NoError(t, err)
}

func TestReplaceTable_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s, r := newFileSink(t)

	_, err := s.Write(ctx, schema.Users, [][]any{{"10", "A", "B", "F", "free"}})
	require.NoError(t, err)

	_, err = s.Write(ctx, schema.Users, [][]any{{"11", "short"}})
	var we *storage.WriteError
	require.True(t, errors.As(err, &we), "err = %v", err)
	assert.Equal(t, "users", we.Table)

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT count(*) FROM "users"`).Scan(&count))
	assert.Equal(t, 1, count, "failed write must leave the previous table intact")
}
