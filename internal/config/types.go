// Package config provides the configuration types shared by the CLI and the
// engine: the analytical store target, the summary output and the log file.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// TargetConfig holds analytical store configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb

	// Database is the store file path; empty or ":memory:" is in-memory.
	Database string `koanf:"database"`

	Schema string `koanf:"schema"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// ApplyDefaults fills the type and schema when unset.
func (t *TargetConfig) ApplyDefaults() {
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchema
	}
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the target to the adapter connection config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	path := t.Database
	if path == ":memory:" {
		path = ""
	}
	return adapter.Config{
		Type:   strings.ToLower(t.Type),
		Path:   path,
		Schema: t.Schema,
		Params: t.Params,
	}
}

// SummaryConfig controls where and how the vendor summary is written.
type SummaryConfig struct {
	Table       string `koanf:"table"`
	WriteMode   string `koanf:"write_mode"`
	PreviewRows int    `koanf:"preview_rows"`
}

// Mode parses the configured write mode.
func (s *SummaryConfig) Mode() (table.WriteMode, error) {
	return table.ParseWriteMode(s.WriteMode)
}

// LogConfig holds the diagnostic log settings.
type LogConfig struct {
	File  string `koanf:"file"`
	Level string `koanf:"level"`
}
