// Package ingest loads a directory of CSV files into the analytical store,
// one table per file, appending fixed-size chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
)

// DefaultChunkSize is the number of rows appended per write.
const DefaultChunkSize = 10000

// Store appends CSV files to named relations.
type Store interface {
	LoadCSV(ctx context.Context, name, path string, chunkSize int, onChunk adapter.CSVChunkFunc) (int64, error)
}

// FileResult describes the load of one CSV file.
type FileResult struct {
	File        string
	Path        string
	Table       string
	Rows        int64
	Chunks      int
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Report collects the results of a directory load.
type Report struct {
	Files   []FileResult
	Elapsed time.Duration
}

// Rows returns the number of rows loaded across all files.
func (r *Report) Rows() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Rows
	}
	return n
}

// Failed returns the files that did not load completely.
func (r *Report) Failed() []FileResult {
	if r == nil {
		return nil
	}
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the per-file errors, or returns nil if every file loaded.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", f.File, f.Err))
	}
	return errors.Join(errs...)
}

// Loader appends CSV files to the store.
type Loader struct {
	store     Store
	chunkSize int
	logger    *slog.Logger
}

// NewLoader creates a loader writing through store.
// A chunkSize of zero or less uses DefaultChunkSize; a nil logger discards.
func NewLoader(store Store, chunkSize int, logger *slog.Logger) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{store: store, chunkSize: chunkSize, logger: logger}
}

// TableName returns the relation a CSV file loads into: its base name
// without the extension.
func TableName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadDir loads every *.csv file of dir in name order.
//
// A file that fails is logged and recorded in the report; the remaining files
// still load. The returned error is only for an unreadable directory or a
// cancelled context.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	report := &Report{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		path := filepath.Join(dir, entry.Name())
		res := l.LoadFile(ctx, path, TableName(entry.Name()))
		report.Files = append(report.Files, res)
	}

	report.Elapsed = time.Since(start)
	l.logger.Info("all ingestion complete",
		"files", len(report.Files),
		"failed", len(report.Failed()),
		"rows", report.Rows(),
		"elapsed", report.Elapsed.Round(time.Millisecond).String(),
	)
	return report, nil
}

// LoadFile appends one CSV file to tableName in chunks.
// A file that fails leaves tableName as it was.
func (l *Loader) LoadFile(ctx context.Context, path, tableName string) FileResult {
	res := FileResult{
		File:      filepath.Base(path),
		Path:      path,
		Table:     tableName,
		StartedAt: time.Now(),
	}
	l.logger.Info("starting ingestion", "file", res.File, "table", tableName)

	res.Err = l.loadChunks(ctx, path, &res)
	res.CompletedAt = time.Now()

	if res.Err != nil {
		l.logger.Error("error processing file", "file", res.File, "error", res.Err)
		return res
	}

	l.logger.Info("finished ingestion",
		"file", res.File,
		"table", tableName,
		"rows", res.Rows,
		"chunks", res.Chunks,
		"elapsed", res.CompletedAt.Sub(res.StartedAt).Round(time.Millisecond).String(),
	)
	return res
}

func (l *Loader) loadChunks(ctx context.Context, path string, res *FileResult) error {
	n, err := l.store.LoadCSV(ctx, res.Table, path, l.chunkSize, func(chunk int, rows int64) {
		res.Chunks = chunk
		l.logger.Info("ingesting chunk", "file", res.File, "chunk", chunk, "rows", rows)
	})
	if err != nil {
		res.Chunks = 0
		return err
	}
	res.Rows = n
	return nil
}
