package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/vendorsummary/internal/logging"
)

// outputModes lists the accepted values of the output setting.
var outputModes = map[string]bool{"auto": true, "text": true, "markdown": true, "json": true}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.OutputFormat != "" && !outputModes[c.OutputFormat] {
		return fmt.Errorf("unknown output format %q\nHint: use auto, text, markdown or json", c.OutputFormat)
	}
	if c.Summary != nil {
		if _, err := c.Summary.Mode(); err != nil {
			return fmt.Errorf("invalid summary.write_mode: %w", err)
		}
	}
	if c.Log != nil {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			return err
		}
	}
	if c.Target != nil {
		return c.Target.Validate()
	}
	return nil
}

// ValidateDataDir checks that the raw data directory exists.
func (c *Config) ValidateDataDir() error {
	info, err := os.Stat(c.DataDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("data directory does not exist: %s\nHint: Create the directory or use --data-dir to specify a different path", c.DataDir)
	}
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory is not a directory: %s", c.DataDir)
	}
	return nil
}
