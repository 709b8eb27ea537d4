package config

import (
	"github.com/leapstack-labs/vendorsummary/internal/ingest"
	"github.com/leapstack-labs/vendorsummary/internal/summary"
)

// Default configuration values.
const (
	DefaultDataDir     = "data"
	DefaultDatabase    = "inventory.duckdb"
	DefaultTargetType  = "duckdb"
	DefaultSchema      = "main"
	DefaultStateFile   = ".vendorsummary/state.db"
	DefaultLogFile     = "log/vendorsummary.log"
	DefaultLogLevel    = "info"
	DefaultWriteMode   = "replace"
	DefaultChunkSize   = ingest.DefaultChunkSize
	DefaultTable       = summary.DefaultTable
	DefaultPreviewRows = summary.DefaultPreviewRows
)

// ApplyTargetDefaults applies default values to a TargetConfig.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.ApplyDefaults()
}

// ApplySummaryDefaults applies default values to a SummaryConfig.
func ApplySummaryDefaults(s *SummaryConfig) {
	if s == nil {
		return
	}
	if s.Table == "" {
		s.Table = DefaultTable
	}
	if s.WriteMode == "" {
		s.WriteMode = DefaultWriteMode
	}
}

// ApplyLogDefaults applies default values to a LogConfig.
func ApplyLogDefaults(l *LogConfig) {
	if l == nil {
		return
	}
	if l.File == "" {
		l.File = DefaultLogFile
	}
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
}
