package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

// fakeTx records the statements and COPY batches of one transaction. Methods
// the repository does not call are left to the embedded nil interface.
type fakeTx struct {
	pgx.Tx

	execs      []string
	copyTable  pgx.Identifier
	copyCols   []string
	copied     [][]any
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copyTable, f.copyCols = table, cols
	var n int64
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return n, err
		}
		f.copied = append(f.copied, v)
		n++
	}
	return n, nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakePool struct{ tx *fakeTx }

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) { return p.tx, nil }

func TestReplaceTable_DropCreateCopyIndex(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	r := &Repository{pool: &fakePool{tx: tx}, cfg: Config{Schema: "analytics", BatchSize: 1}}

	rows := [][]any{
		{"S1", "Song", "A1", int64(2000), 218.93},
		{"S2", "Other", "A1", int64(0), nil},
	}
	n, err := r.ReplaceTable(context.Background(), schema.Songs, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, tx.execs, 3)
	assert.Equal(t, `DROP TABLE IF EXISTS "analytics"."songs";`, tx.execs[0])
	assert.True(t, strings.HasPrefix(tx.execs[1], `CREATE TABLE "analytics"."songs" (`), tx.execs[1])
	assert.Equal(t, `CREATE INDEX "ix_songs_year_artist_id" ON "analytics"."songs" ("year", "artist_id");`, tx.execs[2])

	assert.Equal(t, pgx.Identifier{"analytics", "songs"}, tx.copyTable)
	assert.Equal(t, schema.Songs.ColumnNames(), tx.copyCols)
	assert.Equal(t, rows, tx.copied)
	assert.True(t, tx.committed)
}

func TestReplaceTable_CopyFailureRollsBack(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{copyErr: &pgconn.PgError{Code: "22P02", Detail: "bad value"}}
	s := &sink{repo: &Repository{pool: &fakePool{tx: tx}}}

	_, err := s.Write(context.Background(), schema.Users, [][]any{{"10", "A", "B", "F", "free"}})
	var we *storage.WriteError
	require.True(t, errors.As(err, &we), "err = %v", err)
	assert.Equal(t, "users", we.Table)
	assert.Contains(t, err.Error(), "bad value")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestSplitFQN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pgx.Identifier{"public", "time"}, splitFQN("public.time"))
	assert.Equal(t, pgx.Identifier{"songs"}, splitFQN("songs"))
}
