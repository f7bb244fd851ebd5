// Package config defines the run configuration of the ETL binary and loads it
// in layers with koanf: struct defaults, then an optional YAML (or JSON) file,
// then ETL_-prefixed environment variables. Command-line flags are applied by
// cmd/etl on top of the loaded value, after which Validate lints the result.
//
// Example file:
//
//	job: sparkify
//	catalog: { root: data/song_data }
//	logs:    { root: data/log_data }
//	output:  { kind: parquet, root: out, compression: snappy }
//	transform: { timezone: UTC, user_policy: first-seen }
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. ETL_OUTPUT_ROOT.
const EnvPrefix = "ETL_"

// Config is the full run configuration.
type Config struct {
	// Job labels metrics and the run report.
	Job string `koanf:"job" validate:"required"`

	Catalog   Input     `koanf:"catalog"`
	Logs      Input     `koanf:"logs"`
	Output    Output    `koanf:"output"`
	Transform Transform `koanf:"transform"`
	Runtime   Runtime   `koanf:"runtime"`
	Metrics   Metrics   `koanf:"metrics"`

	// ReportPath, when set, receives the JSON run summary.
	ReportPath string `koanf:"report_path"`

	Log Log `koanf:"log"`
}

// Input locates one raw feed: a directory tree or a manifest of files.
type Input struct {
	Root     string `koanf:"root" validate:"required_without=Manifest"`
	Manifest string `koanf:"manifest"`
}

// Output selects and configures the sink.
type Output struct {
	Kind        string `koanf:"kind" validate:"required,oneof=parquet s3 duckdb postgres mssql sqlite memory"`
	Root        string `koanf:"root"`
	DSN         string `koanf:"dsn"`
	Bucket      string `koanf:"bucket"`
	Prefix      string `koanf:"prefix"`
	Region      string `koanf:"region"`
	Endpoint    string `koanf:"endpoint" validate:"omitempty,url"`
	Compression string `koanf:"compression" validate:"omitempty,oneof=snappy gzip zstd none uncompressed"`
}

// Transform tunes the builders.
type Transform struct {
	// Timezone is the IANA zone calendar attributes are computed in.
	Timezone string `koanf:"timezone" validate:"required"`

	// UserPolicy picks the surviving users row: first-seen or latest.
	UserPolicy string `koanf:"user_policy" validate:"required,oneof=first-seen latest"`
}

// Runtime controls concurrency.
type Runtime struct {
	// ReaderWorkers bounds parallel file parsing; 0 means GOMAXPROCS.
	ReaderWorkers int `koanf:"reader_workers" validate:"gte=0"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `koanf:"backend" validate:"omitempty,oneof=none prometheus datadog"`
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	DatadogAddr    string `koanf:"datadog_addr"`
}

// Log configures internal/logging.
type Log struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Job:       "sparkify",
		Catalog:   Input{Root: "data/song_data"},
		Logs:      Input{Root: "data/log_data"},
		Output:    Output{Kind: "parquet", Root: "out", Compression: "snappy"},
		Transform: Transform{Timezone: "UTC", UserPolicy: "first-seen"},
		Metrics:   Metrics{Backend: "none"},
		Log:       Log{Level: "info", Format: "json"},
	}
}

// envKeys maps lower-cased environment names (prefix stripped) to config
// paths. Keys with underscores inside a segment make a generic split
// ambiguous, so the mapping is explicit.
var envKeys = map[string]string{
	"job":                     "job",
	"catalog_root":            "catalog.root",
	"catalog_manifest":        "catalog.manifest",
	"logs_root":               "logs.root",
	"logs_manifest":           "logs.manifest",
	"output_kind":             "output.kind",
	"output_root":             "output.root",
	"output_dsn":              "output.dsn",
	"output_bucket":           "output.bucket",
	"output_prefix":           "output.prefix",
	"output_region":           "output.region",
	"output_endpoint":         "output.endpoint",
	"output_compression":      "output.compression",
	"transform_timezone":      "transform.timezone",
	"transform_user_policy":   "transform.user_policy",
	"runtime_reader_workers":  "runtime.reader_workers",
	"metrics_backend":         "metrics.backend",
	"metrics_pushgateway_url": "metrics.pushgateway_url",
	"metrics_datadog_addr":    "metrics.datadog_addr",
	"report_path":             "report_path",
	"log_level":               "log.level",
	"log_format":              "log.format",
}

// envTransformFunc maps ETL_OUTPUT_ROOT to output.root. Unknown variables
// return "" and are ignored.
func envTransformFunc(key string) string {
	return envKeys[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))]
}

// Load layers defaults, the file at path (skipped when empty) and the
// environment. It does not validate; call Validate after applying flags.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, &ConfigError{Err: fmt.Errorf("load defaults: %w", err)}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, &ConfigError{Err: fmt.Errorf("load config file %s: %w", path, err)}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return Config{}, &ConfigError{Err: fmt.Errorf("load environment: %w", err)}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, &ConfigError{Err: fmt.Errorf("unmarshal configuration: %w", err)}
	}
	return cfg, nil
}
