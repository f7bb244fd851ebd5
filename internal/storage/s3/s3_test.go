package s3

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"sparkify/internal/schema"
	"sparkify/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deletes   []string
	uploadErr error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, bucket+"/"+prefix)
	for k := range f.objects {
		if strings.HasPrefix(k, bucket+"/"+prefix) {
			delete(f.objects, k)
		}
	}
	return nil
}

func (f *fakeStore) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = b
	return nil
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestSink_UploadsPartitionsUnderPrefix(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.objects["lake/sparkify/time/year=2017/month=1/part-00000.parquet"] = []byte("stale")
	store.objects["lake/sparkify/times/keep.parquet"] = []byte("other table")

	s, err := newSink(store, storage.Config{Bucket: "lake", Prefix: "sparkify", Root: t.TempDir()})
	require.NoError(t, err)

	rows := [][]any{
		{"2018-11-02 01:25:34", int64(1), int64(2), int64(44), int64(11), int64(2018), "Friday"},
		{"2018-12-01 00:00:00", int64(0), int64(1), int64(48), int64(12), int64(2018), "Saturday"},
	}
	n, err := s.Write(context.Background(), schema.Time, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, []string{"lake/sparkify/time/"}, store.deletes)
	assert.Equal(t, []string{
		"lake/sparkify/time/year=2018/month=11/part-00000.parquet",
		"lake/sparkify/time/year=2018/month=12/part-00000.parquet",
		"lake/sparkify/times/keep.parquet",
	}, store.keys())

	body := store.objects["lake/sparkify/time/year=2018/month=11/part-00000.parquet"]
	require.True(t, len(body) > 4)
	assert.Equal(t, "PAR1", string(body[:4]))
}

func TestSink_UploadFailureIsWriteError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.uploadErr = errors.New("access denied")
	s, err := newSink(store, storage.Config{Bucket: "lake"})
	require.NoError(t, err)

	_, err = s.Write(context.Background(), schema.Users, [][]any{{"10", "Lily", "Koch", "F", "paid"}})
	var werr *storage.WriteError
	require.True(t, errors.As(err, &werr), "err = %v", err)
	assert.Equal(t, "users", werr.Table)
	assert.Contains(t, err.Error(), "s3://lake/users/part-00000.parquet")
}

func TestNew_RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := New(storage.Config{Kind: "s3"})
	assert.Error(t, err)
}

func TestTablePrefix(t *testing.T) {
	t.Parallel()

	s := &Sink{}
	assert.Equal(t, "songs/", s.TablePrefix("songs"))
	s.prefix = "a/b/"
	assert.Equal(t, "a/b/songs/", s.TablePrefix("songs"))
}
