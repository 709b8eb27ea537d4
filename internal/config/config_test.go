package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
	"github.com/leapstack-labs/vendorsummary/pkg/table"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/vendorsummary/pkg/adapters/duckdb"
)

func TestTargetConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		target    TargetConfig
		errSubstr string
	}{
		{name: "empty type", target: TargetConfig{}, errSubstr: "target type is required"},
		{name: "duckdb", target: TargetConfig{Type: "duckdb"}},
		{name: "duckdb uppercase", target: TargetConfig{Type: "DuckDB"}},
		{name: "postgres is not available", target: TargetConfig{Type: "postgres"}, errSubstr: `unknown store type "postgres"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	target := &TargetConfig{Type: "DuckDB", Database: ":memory:", Params: map[string]any{"settings": map[string]any{"threads": 2}}}
	target.ApplyDefaults()

	got := target.AdapterConfig()
	assert.Equal(t, adapter.Config{
		Type:   "duckdb",
		Path:   "",
		Schema: "main",
		Params: map[string]any{"settings": map[string]any{"threads": 2}},
	}, got)

	target.Database = "inventory.duckdb"
	assert.Equal(t, "inventory.duckdb", target.AdapterConfig().Path)
}

func TestApplyDefaults(t *testing.T) {
	s := &SummaryConfig{}
	ApplySummaryDefaults(s)
	assert.Equal(t, "vendor_sales_summary", s.Table)
	mode, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, table.Replace, mode)

	l := &LogConfig{Level: "debug"}
	ApplyLogDefaults(l)
	assert.Equal(t, DefaultLogFile, l.File)
	assert.Equal(t, "debug", l.Level)

	ApplyTargetDefaults(nil)
	ApplySummaryDefaults(nil)
	ApplyLogDefaults(nil)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Empty(t, FindProjectRoot(nested))

	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("data_dir: raw\n"), 0o600))
	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))
}
