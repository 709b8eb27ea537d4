package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// DefaultPreviewRows is how many rows are logged after each stage.
const DefaultPreviewRows = 5

// Store is what Run needs from the analytical store.
type Store interface {
	Querier
	Sink
}

// Options configures Run.
type Options struct {
	// Table is the output relation (default vendor_sales_summary).
	Table string
	// Mode is the write mode (default table.Replace).
	Mode table.WriteMode
	// PreviewRows is the number of rows logged at debug level after the
	// build and clean stages. Zero uses DefaultPreviewRows; negative disables.
	PreviewRows int
	Logger      *slog.Logger
}

// Result describes a completed summary run.
type Result struct {
	Table   *table.Table
	Rows    int
	Written int64
}

// Run builds, cleans and persists the vendor summary.
//
// An aggregation failure is logged by the builder and reported here as
// ErrEmptySummary without writing anything. Cleaning and write failures are
// returned.
func Run(ctx context.Context, store Store, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.Mode == "" {
		opts.Mode = table.Replace
	}
	if opts.PreviewRows == 0 {
		opts.PreviewRows = DefaultPreviewRows
	}

	logger.Info("creating vendor summary")
	summary := BuildVendorSummary(ctx, store, logger)
	if summary.Empty() {
		logger.Warn("vendor summary is empty, nothing to ingest")
		return nil, ErrEmptySummary
	}
	logPreview(logger, "aggregated", summary, opts.PreviewRows)

	logger.Info("cleaning vendor summary")
	cleaned, err := Clean(summary)
	if err != nil {
		logger.Error("error cleaning vendor summary", "error", err)
		return nil, fmt.Errorf("failed to clean vendor summary: %w", err)
	}
	logPreview(logger, "cleaned", cleaned, opts.PreviewRows)

	logger.Info("ingesting vendor summary", "table", opts.Table, "mode", string(opts.Mode))
	written, err := Persist(ctx, store, opts.Table, cleaned, opts.Mode)
	if err != nil {
		logger.Error("error ingesting vendor summary", "error", err)
		return nil, err
	}

	logger.Info("vendor summary completed", "table", opts.Table, "rows", cleaned.Len(), "written", written)
	return &Result{Table: cleaned, Rows: cleaned.Len(), Written: written}, nil
}

func logPreview(logger *slog.Logger, stage string, t *table.Table, n int) {
	if n < 0 || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for i, row := range t.Head(n).Rows {
		logger.Debug("vendor summary preview", "stage", stage, "row", i, "values", formatRow(t.Columns, row))
	}
}

func formatRow(columns []string, row []any) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", col, row[i])
	}
	return b.String()
}
