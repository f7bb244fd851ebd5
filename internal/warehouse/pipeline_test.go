package warehouse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sparkify/internal/config"
	"sparkify/internal/ingest"
	"sparkify/internal/schema"
	"sparkify/internal/storage"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	songS1 = `{"num_songs":1,"artist_id":"A1","artist_latitude":null,"artist_longitude":null,` +
		`"artist_location":"","artist_name":"Band","song_id":"S1","title":"Hello","duration":200.0,"year":2018}`
	eventHello = `{"artist":"Band","auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":0,` +
		`"lastName":"Koch","length":200.0,"level":"paid","location":"Chicago","method":"PUT","page":"NextSong",` +
		`"registration":1541048010796,"sessionId":42,"song":"Hello","status":200,"ts":1541121934796,` +
		`"userAgent":"UA","userId":"10"}`
	eventHome = `{"artist":null,"auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":1,` +
		`"lastName":"Koch","length":null,"level":"paid","location":"Chicago","method":"GET","page":"Home",` +
		`"sessionId":42,"song":null,"status":200,"ts":1541121999000,"userAgent":"UA","userId":"10"}`
)

func fixture(t *testing.T, songs map[string]string, logs map[string]string) (string, string) {
	t.Helper()
	root := t.TempDir()
	songRoot := filepath.Join(root, "song_data")
	logRoot := filepath.Join(root, "log_data")
	require.NoError(t, os.MkdirAll(songRoot, 0o755))
	require.NoError(t, os.MkdirAll(logRoot, 0o755))
	for name, body := range songs {
		p := filepath.Join(songRoot, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	for name, body := range logs {
		p := filepath.Join(logRoot, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return songRoot, logRoot
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	songRoot, logRoot := fixture(t,
		map[string]string{"A/A/A/TRAAAAA.json": songS1},
		map[string]string{"2018/11/2018-11-02-events.json": eventHello + "\n" + eventHome + "\n"},
	)
	sink := storage.NewMemory()

	sum, err := Run(context.Background(), Options{
		Catalog: ingest.Options{Root: songRoot},
		Logs:    ingest.Options{Root: logRoot},
		Sink:    sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, sum.Status)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, DefaultJob, sum.Job)
	assert.Equal(t, 1, sum.PlayEvents)
	assert.Zero(t, sum.Unmatched)
	assert.Zero(t, sum.SkippedFiles())
	assert.Equal(t, []string{"songs", "artists", "users", "time", "songplays"}, sink.Tables())

	assert.Equal(t, [][]any{{"S1", "Hello", "A1", int64(2018), 200.0}}, sink.Rows("songs"))
	assert.Equal(t, [][]any{{"A1", "Band", "", nil, nil}}, sink.Rows("artists"))
	assert.Equal(t, [][]any{{"10", "Lily", "Koch", "F", "paid"}}, sink.Rows("users"))
	assert.Equal(t, [][]any{{"2018-11-02 01:25:34", int64(1), int64(2), int64(44), int64(11), int64(2018), "Friday"}},
		sink.Rows("time"))
	assert.Equal(t, [][]any{{
		int64(1), "2018-11-02 01:25:34", "10", "paid", "S1", "A1",
		int64(42), "Chicago", "UA", int64(2018), int64(11),
	}}, sink.Rows("songplays"))

	rows, ok := sum.TableRows("songplays")
	assert.True(t, ok)
	assert.Equal(t, int64(1), rows)
}

func TestRun_LengthMismatchDropsFactOnly(t *testing.T) {
	t.Parallel()

	mismatch := `{"artist":"Band","firstName":"Lily","gender":"F","lastName":"Koch","length":199.99,` +
		`"level":"paid","location":"Chicago","page":"NextSong","sessionId":42,"song":"Hello",` +
		`"ts":1541121934796,"userAgent":"UA","userId":10}`
	songRoot, logRoot := fixture(t,
		map[string]string{"s.json": songS1},
		map[string]string{"e.json": mismatch},
	)
	sink := storage.NewMemory()

	sum, err := Run(context.Background(), Options{
		Catalog: ingest.Options{Root: songRoot},
		Logs:    ingest.Options{Root: logRoot},
		Sink:    sink,
	})
	require.NoError(t, err)

	assert.Empty(t, sink.Rows("songplays"))
	assert.Len(t, sink.Rows("users"), 1)
	assert.Len(t, sink.Rows("time"), 1)
	assert.Equal(t, 1, sum.Unmatched)
}

func TestRun_SkipsMalformedInput(t *testing.T) {
	t.Parallel()

	songRoot, logRoot := fixture(t,
		map[string]string{"a.json": songS1, "b.json": `{"song_id":`},
		map[string]string{"e.json": eventHello},
	)
	sum, err := Run(context.Background(), Options{
		Catalog: ingest.Options{Root: songRoot},
		Logs:    ingest.Options{Root: logRoot},
		Sink:    storage.NewMemory(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Catalog.SkippedFiles)
	assert.Equal(t, 1, sum.SkippedFiles())
}

type failingSink struct {
	storage.Sink
	failOn string
	calls  []string
}

func (f *failingSink) Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	f.calls = append(f.calls, table.Name)
	if table.Name == f.failOn {
		return 0, errors.New("disk full")
	}
	return f.Sink.Write(ctx, table, rows)
}

func TestRun_WriteFailureAbortsRemainingTables(t *testing.T) {
	t.Parallel()

	songRoot, logRoot := fixture(t,
		map[string]string{"s.json": songS1},
		map[string]string{"e.json": eventHello},
	)
	mem := storage.NewMemory()
	sink := &failingSink{Sink: mem, failOn: "users"}

	sum, err := Run(context.Background(), Options{
		Catalog: ingest.Options{Root: songRoot},
		Logs:    ingest.Options{Root: logRoot},
		Sink:    sink,
	})
	require.Error(t, err)

	var werr *storage.WriteError
	require.True(t, errors.As(err, &werr), "err = %v", err)
	assert.Equal(t, "users", werr.Table)
	assert.Equal(t, []string{"songs", "artists", "users"}, sink.calls)
	assert.Equal(t, []string{"songs", "artists"}, mem.Tables())
	assert.Equal(t, StatusFailed, sum.Status)
	assert.Contains(t, sum.Error, "disk full")
	assert.Len(t, sum.Tables, 2)
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	songRoot, logRoot := fixture(t,
		map[string]string{"s.json": songS1},
		map[string]string{"e.json": eventHello},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := Run(ctx, Options{
		Catalog: ingest.Options{Root: songRoot},
		Logs:    ingest.Options{Root: logRoot},
		Sink:    storage.NewMemory(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, sum.Status)
}

func TestRun_RequiresSink(t *testing.T) {
	t.Parallel()

	songRoot, logRoot := fixture(t, map[string]string{"s.json": songS1}, map[string]string{"e.json": eventHello})
	sum, err := Run(context.Background(), Options{
		Catalog: ingest.Options{Root: songRoot},
		Logs:    ingest.Options{Root: logRoot},
	})

	var cerr *config.ConfigError
	require.True(t, errors.As(err, &cerr), "err = %v", err)
	require.Len(t, cerr.Issues, 1)
	assert.Equal(t, "output.kind", cerr.Issues[0].Path)
	assert.Zero(t, sum.Catalog.Records)
	assert.Equal(t, StatusFailed, sum.Status)
}

func TestRun_MissingInputIsConfigErrorBeforeReading(t *testing.T) {
	t.Parallel()

	songRoot, _ := fixture(t, map[string]string{"s.json": songS1}, nil)
	sink := storage.NewMemory()

	sum, err := Run(context.Background(), Options{
		Catalog: ingest.Options{Root: songRoot},
		Sink:    sink,
	})

	var cerr *config.ConfigError
	require.True(t, errors.As(err, &cerr), "err = %v", err)
	require.Len(t, cerr.Issues, 1)
	assert.Equal(t, "logs.root", cerr.Issues[0].Path)
	assert.Zero(t, sum.Catalog.Files)
	assert.Zero(t, sum.Catalog.Records)
	assert.Empty(t, sink.Tables())

	_, err = Run(context.Background(), Options{})
	require.True(t, errors.As(err, &cerr), "err = %v", err)
	assert.Len(t, cerr.Issues, 3)
}

func TestRun_PinnedZoneAndLatestPolicy(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	later := `{"firstName":"Lily","gender":"F","lastName":"Koch","level":"free","page":"NextSong",` +
		`"sessionId":43,"ts":1541200000000,"userAgent":"UA","userId":"10"}`
	songRoot, logRoot := fixture(t,
		map[string]string{"s.json": songS1},
		map[string]string{"a.json": later, "b.json": eventHello},
	)
	sink := storage.NewMemory()

	_, err = Run(context.Background(), Options{
		Catalog:    ingest.Options{Root: songRoot},
		Logs:       ingest.Options{Root: logRoot},
		Sink:       sink,
		Location:   tokyo,
		UserPolicy: UserLatest,
	})
	require.NoError(t, err)

	assert.Equal(t, "free", sink.Rows("users")[0][4])
	sp := sink.Rows("songplays")
	require.Len(t, sp, 1)
	assert.Equal(t, "2018-11-02 10:25:34", sp[0][1])
}

func TestSummary_WriteFile(t *testing.T) {
	t.Parallel()

	sum := Summary{
		RunID:  "run-1",
		Job:    "sparkify",
		Status: StatusSuccess,
		Tables: []TableSummary{{Name: "songs", Rows: 3, Partitions: 2}},
	}
	path := filepath.Join(t.TempDir(), "reports", "etl_stats.json")
	require.NoError(t, sum.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "success", got["status"])
	tables := got["tables"].([]any)
	require.Len(t, tables, 1)
	assert.Equal(t, "songs", tables[0].(map[string]any)["name"])
}
