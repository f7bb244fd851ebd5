// Package warehouse turns the raw catalog and activity-log feeds into the
// star schema: the songplays fact table and the songs, artists, users and
// time dimensions.
//
// Builders are pure functions over record slices in stable ingestion order.
// Run wires them together: read both feeds, build every table, then write the
// tables one by one through a storage.Sink.
package warehouse

import (
	"context"
	"errors"
	"time"

	"sparkify/internal/config"
	"sparkify/internal/ingest"
	"sparkify/internal/logging"
	"sparkify/internal/metrics"
	"sparkify/internal/records"
	"sparkify/internal/schema"
	"sparkify/internal/storage"

	"github.com/google/uuid"
)

// DefaultJob labels metrics and reports when Options.Job is empty.
const DefaultJob = "sparkify"

// Options configures Run.
type Options struct {
	Job     string
	Catalog ingest.Options
	Logs    ingest.Options
	Sink    storage.Sink

	// Location pins calendar decomposition; nil means UTC.
	Location   *time.Location
	UserPolicy UserPolicy
}

// Test seams.
var (
	now      = time.Now
	newRunID = uuid.NewString
)

type built struct {
	table schema.Table
	rows  [][]any
}

// Run executes one full batch. The returned Summary is filled in as far as
// the run got, also when an error is returned.
//
// A failed table write stops the run with a *storage.WriteError: tables
// written before it are left in place and later tables are not written.
func Run(ctx context.Context, opt Options) (sum Summary, err error) {
	job := opt.Job
	if job == "" {
		job = DefaultJob
	}
	start := now()
	sum = Summary{
		RunID:     newRunID(),
		Job:       job,
		StartedAt: start.UTC(),
		Status:    StatusFailed,
	}
	log := logging.With().Str("run_id", sum.RunID).Str("job", job).Logger()

	defer func() {
		sum.Duration = now().Sub(start)
		if err != nil {
			sum.Error = err.Error()
			log.Error().Err(err).Dur("elapsed", sum.Duration).Msg("warehouse: run failed")
			return
		}
		sum.Status = StatusSuccess
		log.Info().Dur("elapsed", sum.Duration).Msg("warehouse: run complete")
	}()

	if err := checkOptions(opt); err != nil {
		return sum, err
	}
	policy := opt.UserPolicy
	if policy == "" {
		policy = UserFirstSeen
	}

	log.Info().Str("catalog", firstNonEmpty(opt.Catalog.Manifest, opt.Catalog.Root)).
		Str("logs", firstNonEmpty(opt.Logs.Manifest, opt.Logs.Root)).Msg("warehouse: run started")

	var catalog []records.CatalogRecord
	err = timed(job, "read_catalog", func() error {
		var rerr error
		catalog, sum.Catalog, rerr = ingest.ReadCatalog(ctx, opt.Catalog)
		return rerr
	})
	if err != nil {
		return sum, err
	}
	metrics.RecordRow(job, "catalog_records", int64(sum.Catalog.Records))
	metrics.RecordRow(job, "skipped_files", int64(sum.Catalog.SkippedFiles))

	var events []records.EventRecord
	err = timed(job, "read_logs", func() error {
		var rerr error
		events, sum.Logs, rerr = ingest.ReadEvents(ctx, opt.Logs)
		return rerr
	})
	if err != nil {
		return sum, err
	}
	metrics.RecordRow(job, "event_records", int64(sum.Logs.Records))
	metrics.RecordRow(job, "skipped_files", int64(sum.Logs.SkippedFiles))

	tables := buildAll(job, catalog, events, opt.Location, policy, &sum)

	ambiguity := sum.join.Warning()
	if ambiguity != nil {
		log.Warn().Int("events", ambiguity.Events).Interface("samples", ambiguity.Samples).
			Msg("warehouse: plays matched more than one catalog row")
	}
	log.Info().Int("plays", sum.PlayEvents).Int("matched", sum.join.Matched).
		Int("unmatched", sum.Unmatched).Int("ambiguous", sum.Ambiguous).Msg("warehouse: join resolved")

	for _, b := range tables {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ts, werr := writeTable(ctx, job, opt.Sink, b)
		if werr != nil {
			return sum, werr
		}
		sum.Tables = append(sum.Tables, ts)
		log.Info().Str("table", ts.Name).Int64("rows", ts.Rows).Int("partitions", ts.Partitions).
			Dur("elapsed", ts.Duration).Msg("warehouse: table written")
	}
	return sum, nil
}

// buildAll materializes every table in write order.
func buildAll(job string, catalog []records.CatalogRecord, events []records.EventRecord,
	loc *time.Location, policy UserPolicy, sum *Summary) []built {

	plays := FilterPlays(events)
	sum.PlayEvents = len(plays)

	var out []built
	build := func(t schema.Table, fn func() [][]any) {
		var rows [][]any
		_ = timed(job, "build_"+t.Name, func() error {
			rows = fn()
			return nil
		})
		out = append(out, built{table: t, rows: rows})
	}

	build(schema.Songs, func() [][]any { return SongRows(BuildSongs(catalog)) })
	build(schema.Artists, func() [][]any { return ArtistRows(BuildArtists(catalog)) })
	build(schema.Users, func() [][]any { return UserRows(BuildUsers(plays, policy)) })
	build(schema.Time, func() [][]any { return TimeRows(BuildTime(plays, loc)) })
	build(schema.Songplays, func() [][]any {
		facts, stats := BuildSongplays(plays, catalog, loc)
		sum.join = stats
		sum.Unmatched = stats.Unmatched
		sum.Ambiguous = stats.Ambiguous
		sum.AmbiguousSamples = stats.Samples
		return SongplayRows(facts)
	})

	metrics.RecordRow(job, "unmatched_events", int64(sum.Unmatched))
	metrics.RecordRow(job, "ambiguous_events", int64(sum.Ambiguous))
	return out
}

func writeTable(ctx context.Context, job string, sink storage.Sink, b built) (TableSummary, error) {
	start := time.Now()
	n, err := sink.Write(ctx, b.table, b.rows)
	d := time.Since(start)
	metrics.RecordStep(job, "write_"+b.table.Name, err, d)
	if err != nil {
		var werr *storage.WriteError
		if !errors.As(err, &werr) {
			err = &storage.WriteError{Table: b.table.Name, Err: err}
		}
		return TableSummary{}, err
	}
	metrics.RecordTableRows(job, b.table.Name, n)
	return TableSummary{
		Name:       b.table.Name,
		Rows:       n,
		Partitions: storage.PartitionCount(b.table, b.rows),
		Duration:   d,
	}, nil
}

// checkOptions rejects options that cannot produce a run, before any input
// is read. Failures are reported as a *config.ConfigError.
func checkOptions(opt Options) error {
	var issues []config.Issue
	input := func(path string, in ingest.Options) {
		if in.Root == "" && in.Manifest == "" {
			issues = append(issues, config.Issue{
				Severity: config.SeverityError,
				Path:     path,
				Message:  "either root or manifest must be set",
			})
		}
	}
	input("catalog.root", opt.Catalog)
	input("logs.root", opt.Logs)
	if opt.Sink == nil {
		issues = append(issues, config.Issue{
			Severity: config.SeverityError,
			Path:     "output.kind",
			Message:  "no sink configured",
		})
	}
	return config.Err(issues)
}

func timed(job, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, step, err, time.Since(start))
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
