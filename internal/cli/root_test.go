package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vendorsummary/internal/cli/config"
	"github.com/leapstack-labs/vendorsummary/internal/cli/testutil"
)

// runCLI executes the root command with args against a fresh config.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(func() {
		_ = CloseLog()
		config.ResetConfig()
	})

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"version", "run", "load", "summarize", "verify", "history", "completion"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "data-dir", "database", "state", "log-file", "log-level", "chunk-size", "write-mode", "output", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_RunsPipelineWithoutSubcommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := runCLI(t, "--config", filepath.Join(dir, "vendorsummary.yaml"), "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 rows to vendor_sales_summary")

	logData, err := os.ReadFile(filepath.Join(dir, "log", "vendorsummary.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "finished ingestion")
	assert.Contains(t, string(logData), "configuration loaded")
}

func TestRootCmd_LogAppendsAcrossRuns(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, "vendorsummary.yaml")
	logPath := filepath.Join(dir, "log", "vendorsummary.log")

	_, _, err := runCLI(t, "--config", cfgPath, "load")
	require.NoError(t, err)
	require.NoError(t, CloseLog())
	first, err := os.ReadFile(logPath)
	require.NoError(t, err)

	_, _, err = runCLI(t, "--config", cfgPath, "load")
	require.NoError(t, err)
	require.NoError(t, CloseLog())
	second, err := os.ReadFile(logPath)
	require.NoError(t, err)

	assert.Greater(t, len(second), len(first))
	assert.Equal(t, string(first), string(second[:len(first)]))
}

func TestRootCmd_FlagOverridesConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	other := filepath.Join(t.TempDir(), "other.duckdb")

	_, _, err := runCLI(t, "--config", filepath.Join(dir, "vendorsummary.yaml"), "--database", other, "run")
	require.NoError(t, err)

	assert.FileExists(t, other)
	assert.NoFileExists(t, filepath.Join(dir, "inventory.duckdb"))
}

func TestRootCmd_VerboseMirrorsLog(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, stderr, err := runCLI(t, "--config", filepath.Join(dir, "vendorsummary.yaml"), "-v", "verify")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file:")
	assert.Contains(t, stderr, "level=")
}

func TestRootCmd_InvalidSettings(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, "vendorsummary.yaml")

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "output", args: []string{"-o", "html"}, errMsg: "unknown output format"},
		{name: "log level", args: []string{"--log-level", "loud"}, errMsg: "invalid log level"},
		{name: "write mode", args: []string{"--write-mode", "upsert"}, errMsg: "write_mode"},
		{name: "chunk size", args: []string{"--chunk-size=-1"}, errMsg: "chunk_size must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "verify"}, tt.args...)
			_, _, err := runCLI(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRootCmd_VersionSkipsConfig(t *testing.T) {
	out, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vendorsummary v"+Version)
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "vendorsummary")
}
