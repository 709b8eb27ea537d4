package summary

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// Sink writes a table to a named relation.
type Sink interface {
	WriteTable(ctx context.Context, name string, t *table.Table, mode table.WriteMode) (int64, error)
}

// Persist writes the cleaned summary to name using mode.
// An empty mode means table.Replace.
func Persist(ctx context.Context, sink Sink, name string, t *table.Table, mode table.WriteMode) (int64, error) {
	if name == "" {
		name = DefaultTable
	}
	if mode == "" {
		mode = table.Replace
	}

	n, err := sink.WriteTable(ctx, name, t, mode)
	if err != nil {
		return 0, fmt.Errorf("failed to persist %s: %w", name, err)
	}
	return n, nil
}
