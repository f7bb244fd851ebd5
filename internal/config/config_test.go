package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "etl.yaml", `
job: nightly
catalog:
  root: /data/song_data
logs:
  manifest: /data/logs.txt
  root: ""
output:
  kind: duckdb
  root: /warehouse
  compression: zstd
transform:
  timezone: Asia/Tokyo
  user_policy: latest
runtime:
  reader_workers: 8
report_path: /tmp/report.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Job)
	assert.Equal(t, "/data/song_data", cfg.Catalog.Root)
	assert.Equal(t, "/data/logs.txt", cfg.Logs.Manifest)
	assert.Equal(t, "", cfg.Logs.Root)
	assert.Equal(t, "duckdb", cfg.Output.Kind)
	assert.Equal(t, "zstd", cfg.Output.Compression)
	assert.Equal(t, "Asia/Tokyo", cfg.Transform.Timezone)
	assert.Equal(t, "latest", cfg.Transform.UserPolicy)
	assert.Equal(t, 8, cfg.Runtime.ReaderWorkers)
	assert.Equal(t, "/tmp/report.json", cfg.ReportPath)
	// Untouched keys keep their defaults.
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, Validate(cfg))
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "etl.json", `{"output": {"kind": "sqlite", "dsn": "file:x.db"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Output.Kind)
	assert.Equal(t, "file:x.db", cfg.Output.DSN)
}

// Not parallel: t.Setenv.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "etl.yaml", "output:\n  kind: parquet\n  root: /from-file\n")
	t.Setenv("ETL_OUTPUT_ROOT", "/from-env")
	t.Setenv("ETL_RUNTIME_READER_WORKERS", "3")
	t.Setenv("ETL_TRANSFORM_USER_POLICY", "latest")
	t.Setenv("ETL_UNKNOWN_KEY", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.Output.Root)
	assert.Equal(t, 3, cfg.Runtime.ReaderWorkers)
	assert.Equal(t, "latest", cfg.Transform.UserPolicy)
}

func TestLoad_MissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var ce *ConfigError
	require.True(t, errors.As(err, &ce), "err = %v", err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "err = %v", err)
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "metrics.pushgateway_url", envTransformFunc("ETL_METRICS_PUSHGATEWAY_URL"))
	assert.Equal(t, "report_path", envTransformFunc("ETL_REPORT_PATH"))
	assert.Equal(t, "", envTransformFunc("ETL_NOPE"))
}
