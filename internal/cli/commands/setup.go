package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vendorsummary/internal/cli/config"
	"github.com/leapstack-labs/vendorsummary/internal/cli/output"
	intconfig "github.com/leapstack-labs/vendorsummary/internal/config"
	"github.com/leapstack-labs/vendorsummary/internal/engine"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: newRenderer(cmd, cfg),
	}, cleanup, nil
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

// getConfig returns the current configuration, or the defaults when none
// has been loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	cfg := &config.Config{
		DataDir:      config.DefaultDataDir,
		StatePath:    config.DefaultStateFile,
		ChunkSize:    intconfig.DefaultChunkSize,
		OutputFormat: config.DefaultOutput,
		Target:       &config.TargetConfig{Database: config.DefaultDatabase},
		Summary:      &config.SummaryConfig{},
		Log:          &config.LogConfig{},
	}
	intconfig.ApplyTargetDefaults(cfg.Target)
	intconfig.ApplySummaryDefaults(cfg.Summary)
	intconfig.ApplyLogDefaults(cfg.Log)
	return cfg
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	mode, err := cfg.Summary.Mode()
	if err != nil {
		return nil, fmt.Errorf("invalid summary.write_mode: %w", err)
	}

	return engine.New(engine.Config{
		Target:       cfg.Target.AdapterConfig(),
		StatePath:    cfg.StatePath,
		DataDir:      cfg.DataDir,
		ChunkSize:    cfg.ChunkSize,
		SummaryTable: cfg.Summary.Table,
		WriteMode:    mode,
		PreviewRows:  cfg.Summary.PreviewRows,
		Logger:       logger,
	})
}
