// Package logging opens the append-only diagnostic log used by the CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = slog.LevelInfo

// ParseLevel converts a level name (debug, info, warn, error) to a slog.Level.
// An empty name yields DefaultLevel.
func ParseLevel(name string) (slog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultLevel, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return DefaultLevel, fmt.Errorf("invalid log level %q: use debug, info, warn or error", name)
	}
	return level, nil
}

// Open returns a text logger appending to the file at path, creating the
// file and its directory when missing. Every record is also written to each
// of mirrors. The returned func closes the file.
func Open(path string, level slog.Level, mirrors ...io.Writer) (*slog.Logger, func() error, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var w io.Writer = f
	if len(mirrors) > 0 {
		w = io.MultiWriter(append([]io.Writer{f}, mirrors...)...)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}
