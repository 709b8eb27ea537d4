// Package config provides configuration management for the vendorsummary CLI.
//
// The shared types (TargetConfig, SummaryConfig, LogConfig) are defined in
// internal/config and re-exported here via type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/vendorsummary/internal/config"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = sharedcfg.TargetConfig

// SummaryConfig is an alias for the shared summary output configuration.
type SummaryConfig = sharedcfg.SummaryConfig

// LogConfig is an alias for the shared log configuration.
type LogConfig = sharedcfg.LogConfig

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string         `koanf:"data_dir"`
	StatePath    string         `koanf:"state_path"`
	ChunkSize    int            `koanf:"chunk_size"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Target       *TargetConfig  `koanf:"target"`
	Summary      *SummaryConfig `koanf:"summary"`
	Log          *LogConfig     `koanf:"log"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultDataDir   = sharedcfg.DefaultDataDir
	DefaultDatabase  = sharedcfg.DefaultDatabase
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "VENDORSUMMARY_"
