package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/vendorsummary/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps persistent flag names to config keys. Flags not listed
// here (such as --config) never reach the config.
var flagKeys = map[string]string{
	"data-dir":   "data_dir",
	"database":   "target.database",
	"state":      "state_path",
	"log-file":   "log.file",
	"log-level":  "log.level",
	"chunk-size": "chunk_size",
	"write-mode": "summary.write_mode",
	"output":     "output",
	"verbose":    "verbose",
}

// pathFlags are resolved against the working directory rather than the project root.
var pathFlags = []string{"data-dir", "database", "state", "log-file"}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// projectRoot determines the directory relative paths resolve against.
// Priority: directory of an explicit config file, nearest directory upward
// from the working directory holding vendorsummary.yaml, the working directory.
func projectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(cfgFile)
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from defaults, a .env file, the config file,
// environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFileUsed = ""

	root := projectRoot(cfgFile)

	// 0. Load .env from the project root; existing variables win
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":             intconfig.DefaultDataDir,
		"state_path":           intconfig.DefaultStateFile,
		"chunk_size":           intconfig.DefaultChunkSize,
		"verbose":              false,
		"output":               DefaultOutput,
		"target.type":          intconfig.DefaultTargetType,
		"target.database":      intconfig.DefaultDatabase,
		"target.schema":        intconfig.DefaultSchema,
		"summary.table":        intconfig.DefaultTable,
		"summary.write_mode":   intconfig.DefaultWriteMode,
		"summary.preview_rows": intconfig.DefaultPreviewRows,
		"log.file":             intconfig.DefaultLogFile,
		"log.level":            intconfig.DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(root)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Load environment variables (VENDORSUMMARY_ prefix)
	// Transform: VENDORSUMMARY_DATA_DIR -> data_dir, VENDORSUMMARY_TARGET__DATABASE -> target.database
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	if cfg.Summary == nil {
		cfg.Summary = &SummaryConfig{}
	}
	if cfg.Log == nil {
		cfg.Log = &LogConfig{}
	}
	intconfig.ApplyTargetDefaults(cfg.Target)
	intconfig.ApplySummaryDefaults(cfg.Summary)
	intconfig.ApplyLogDefaults(cfg.Log)

	// Expand environment variables in the store path
	cfg.Target.Database = expandEnvVars(cfg.Target.Database)

	// 6. Resolve relative paths. Paths given as flags are relative to the
	// working directory; everything else is relative to the project root.
	cfg.ProjectRoot = root
	cwd, _ := os.Getwd()
	fromFlag := make(map[string]bool, len(pathFlags))
	if flags != nil {
		for _, name := range pathFlags {
			fromFlag[name] = flags.Changed(name)
		}
	}
	base := func(flag string) string {
		if fromFlag[flag] && cwd != "" {
			return cwd
		}
		return root
	}
	cfg.DataDir = resolvePathRelativeTo(cfg.DataDir, base("data-dir"))
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base("state"))
	cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, base("database"))
	cfg.Log.File = resolvePathRelativeTo(cfg.Log.File, base("log-file"))

	// Validate target configuration
	if err := cfg.Target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // leave unset variables as written
	})
}
