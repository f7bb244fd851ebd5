// Command etl builds the sparkify star schema: it reads the song catalog and
// the activity logs, derives the songs, artists, users, time and songplays
// tables, and writes them through the configured sink.
//
// Configuration is layered: defaults, the -config file, ETL_* environment
// variables, then the flags below.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sparkify/internal/config"
	"sparkify/internal/ingest"
	"sparkify/internal/logging"
	"sparkify/internal/storage"
	"sparkify/internal/warehouse"

	// register all backends with the storage factory.
	_ "sparkify/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cliFlags holds command-line overrides. Empty values leave the loaded
// configuration untouched.
type cliFlags struct {
	configPath     string
	catalog        string
	logs           string
	output         string
	sink           string
	metricsBackend string
	pushgatewayURL string
	report         string
	validate       bool
	verbose        bool
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "YAML or JSON config file (optional)")
	fs.StringVar(&f.catalog, "catalog", "", "song catalog root directory (overrides catalog.root)")
	fs.StringVar(&f.logs, "logs", "", "activity log root directory (overrides logs.root)")
	fs.StringVar(&f.output, "output", "", "output root directory (overrides output.root)")
	fs.StringVar(&f.sink, "sink", "", "sink kind: parquet, s3, duckdb, postgres, mssql, sqlite, memory")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, prometheus, datadog")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	fs.StringVar(&f.report, "report", "", "write the JSON run summary to this path")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable debug logs")

	err := fs.Parse(args)
	return f, err
}

// apply layers the flags over cfg.
func (f cliFlags) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if f.catalog != "" {
		cfg.Catalog = config.Input{Root: f.catalog}
	}
	if f.logs != "" {
		cfg.Logs = config.Input{Root: f.logs}
	}
	set(&cfg.Output.Root, f.output)
	set(&cfg.Output.Kind, f.sink)
	set(&cfg.Metrics.Backend, f.metricsBackend)
	set(&cfg.Metrics.PushgatewayURL, f.pushgatewayURL)
	set(&cfg.ReportPath, f.report)
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}

// run is main without the process exit, so tests can drive it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	flags.apply(&cfg)

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Err(issues); err != nil {
		logging.Error().Str("config", flags.configPath).Msg("etl: configuration is invalid")
		return 1
	}
	if flags.validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return 0
	}

	opts, err := runOptions(cfg)
	if err != nil {
		logging.Err(err).Msg("etl: invalid transform settings")
		return 1
	}

	flushMetrics := setupMetrics(cfg)
	defer flushMetrics()

	sink, err := storage.New(ctx, storageConfig(cfg.Output))
	if err != nil {
		logging.Err(err).Str("kind", cfg.Output.Kind).Msg("etl: open sink")
		return 1
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logging.Warn().Err(err).Msg("etl: close sink")
		}
	}()
	opts.Sink = sink

	sum, runErr := warehouse.Run(ctx, opts)
	printSummary(stdout, sum)

	if cfg.ReportPath != "" {
		if err := sum.WriteFile(cfg.ReportPath); err != nil {
			logging.Err(err).Str("path", cfg.ReportPath).Msg("etl: write report")
			return 1
		}
		logging.Debug().Str("path", cfg.ReportPath).Msg("etl: report written")
	}
	if runErr != nil {
		return 1
	}
	return 0
}

// runOptions maps the validated configuration onto warehouse.Options. The
// sink is set by the caller.
func runOptions(cfg config.Config) (warehouse.Options, error) {
	loc, err := time.LoadLocation(cfg.Transform.Timezone)
	if err != nil {
		return warehouse.Options{}, fmt.Errorf("load time zone: %w", err)
	}
	policy, err := warehouse.ParseUserPolicy(cfg.Transform.UserPolicy)
	if err != nil {
		return warehouse.Options{}, err
	}
	input := func(in config.Input) ingest.Options {
		return ingest.Options{Root: in.Root, Manifest: in.Manifest, Workers: cfg.Runtime.ReaderWorkers}
	}
	return warehouse.Options{
		Job:        cfg.Job,
		Catalog:    input(cfg.Catalog),
		Logs:       input(cfg.Logs),
		Location:   loc,
		UserPolicy: policy,
	}, nil
}

func storageConfig(o config.Output) storage.Config {
	return storage.Config{
		Kind:        o.Kind,
		Root:        o.Root,
		DSN:         o.DSN,
		Bucket:      o.Bucket,
		Prefix:      o.Prefix,
		Region:      o.Region,
		Endpoint:    o.Endpoint,
		Compression: o.Compression,
	}
}
