package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vendorsummary/pkg/adapter"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/vendorsummary/pkg/adapters/duckdb"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vendorsummary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return dir, path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("data-dir", "", "")
	flags.String("database", "", "")
	flags.String("state", "", "")
	flags.String("log-file", "", "")
	flags.String("log-level", "", "")
	flags.Int("chunk-size", 0, "")
	flags.String("write-mode", "", "")
	flags.StringP("output", "o", "", "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir, path := writeConfig(t, "target:\n  type: duckdb\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, ".vendorsummary", "state.db"), cfg.StatePath)
	assert.Equal(t, 10000, cfg.ChunkSize)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.False(t, cfg.Verbose)

	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, filepath.Join(dir, "inventory.duckdb"), cfg.Target.Database)

	assert.Equal(t, "vendor_sales_summary", cfg.Summary.Table)
	assert.Equal(t, "replace", cfg.Summary.WriteMode)
	assert.Equal(t, 5, cfg.Summary.PreviewRows)

	assert.Equal(t, filepath.Join(dir, "log", "vendorsummary.log"), cfg.Log.File)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileValues(t *testing.T) {
	ResetConfig()
	dir, path := writeConfig(t, `data_dir: raw
chunk_size: 500
target:
  type: DuckDB
  database: ":memory:"
  params:
    settings:
      threads: 2
summary:
  table: vendor_summary_v2
  write_mode: append
  preview_rows: -1
log:
  file: /var/tmp/vs.log
  level: debug
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "raw"), cfg.DataDir)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Database, "in-memory is never resolved")
	assert.Contains(t, cfg.Target.Params, "settings")
	assert.Equal(t, "vendor_summary_v2", cfg.Summary.Table)
	assert.Equal(t, "append", cfg.Summary.WriteMode)
	assert.Equal(t, -1, cfg.Summary.PreviewRows)
	assert.Equal(t, "/var/tmp/vs.log", cfg.Log.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, adapter.Config{Type: "duckdb", Schema: "main", Params: cfg.Target.Params}, cfg.Target.AdapterConfig())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir, path := writeConfig(t, "data_dir: from_file\nchunk_size: 500\n")

	t.Setenv("VENDORSUMMARY_DATA_DIR", "from_env")
	t.Setenv("VENDORSUMMARY_CHUNK_SIZE", "250")
	t.Setenv("VENDORSUMMARY_TARGET__DATABASE", "env.duckdb")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from_env"), cfg.DataDir)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, filepath.Join(dir, "env.duckdb"), cfg.Target.Database)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	_, path := writeConfig(t, "data_dir: from_file\nsummary:\n  write_mode: replace\n")
	t.Setenv("VENDORSUMMARY_DATA_DIR", "from_env")

	flags := testFlags()
	require.NoError(t, flags.Set("data-dir", "from_flag"))
	require.NoError(t, flags.Set("state", "runs.db"))
	require.NoError(t, flags.Set("write-mode", "append"))
	require.NoError(t, flags.Set("chunk-size", "42"))
	require.NoError(t, flags.Set("log-level", "warn"))
	require.NoError(t, flags.Set("output", "json"))
	require.NoError(t, flags.Set("verbose", "true"))
	require.NoError(t, flags.Set("config", path))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "from_flag"), cfg.DataDir, "flag paths are relative to the working directory")
	assert.Equal(t, filepath.Join(cwd, "runs.db"), cfg.StatePath)
	assert.Equal(t, "append", cfg.Summary.WriteMode)
	assert.Equal(t, 42, cfg.ChunkSize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	dir, path := writeConfig(t, "data_dir: from_file\n")
	t.Setenv("VENDORSUMMARY_DATA_DIR", "from_env")

	cfg, err := LoadConfig(path, testFlags())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from_env"), cfg.DataDir)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	ResetConfig()
	const key = "VENDORSUMMARY_SUMMARY__TABLE"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir, path := writeConfig(t, "summary:\n  table: from_file\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from_dotenv\n"), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.Summary.Table)
}

func TestLoadConfig_ExpandsDatabaseEnvVars(t *testing.T) {
	ResetConfig()
	storeDir := t.TempDir()
	t.Setenv("VS_TEST_STORE_DIR", storeDir)
	_, path := writeConfig(t, "target:\n  database: ${VS_TEST_STORE_DIR}/inventory.duckdb\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(storeDir, "inventory.duckdb"), cfg.Target.Database)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("unknown target", func(t *testing.T) {
		ResetConfig()
		_, path := writeConfig(t, "target:\n  type: oracle\n")

		_, err := LoadConfig(path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid target configuration")

		var unknown *adapter.UnknownAdapterError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("missing file", func(t *testing.T) {
		ResetConfig()
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		ResetConfig()
		_, path := writeConfig(t, "data_dir: [unclosed\n")
		_, err := LoadConfig(path, nil)
		require.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DataDir:      "data",
			ChunkSize:    100,
			OutputFormat: "auto",
			Target:       &TargetConfig{Type: "duckdb"},
			Summary:      &SummaryConfig{WriteMode: "replace"},
			Log:          &LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }, errSubstr: "data_dir is required"},
		{name: "zero chunk size", mutate: func(c *Config) { c.ChunkSize = 0 }, errSubstr: "chunk_size must be positive"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: "unknown output format"},
		{name: "bad write mode", mutate: func(c *Config) { c.Summary.WriteMode = "upsert" }, errSubstr: "invalid summary.write_mode"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, errSubstr: "invalid log level"},
		{name: "bad target", mutate: func(c *Config) { c.Target.Type = "" }, errSubstr: "target type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateDataDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, (&Config{DataDir: dir}).ValidateDataDir())

	err := (&Config{DataDir: filepath.Join(dir, "missing")}).ValidateDataDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory does not exist")
	assert.Contains(t, err.Error(), "Hint:")

	file := filepath.Join(dir, "purchases.csv")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	err = (&Config{DataDir: file}).ValidateDataDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("VS_TEST_HOME", "/srv")
	assert.Equal(t, "/srv/db.duckdb", expandEnvVars("${VS_TEST_HOME}/db.duckdb"))
	assert.Equal(t, "${VS_TEST_UNSET_VAR}/db", expandEnvVars("${VS_TEST_UNSET_VAR}/db"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}
