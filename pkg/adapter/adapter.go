// Package adapter provides the analytical store contract used by the loader,
// the summary engine and the verifier.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with Register from an init function.
package adapter

import (
	"context"

	"github.com/leapstack-labs/vendorsummary/pkg/core"
	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows

	// TableCount is an alias for core.TableCount.
	TableCount = core.TableCount
)

// CSVChunkFunc is called after each chunk of a CSV load is appended, with the
// 1-based chunk number and the rows it held.
type CSVChunkFunc func(chunk int, rows int64)

// Adapter defines the interface that all store adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	// The caller must close the returned rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves metadata for a specified table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// ListTables returns the names of all base tables in the default schema.
	ListTables(ctx context.Context) ([]string, error)

	// CountRows returns the number of rows in a table.
	CountRows(ctx context.Context, table string) (int64, error)

	// WriteTable writes every row of t into the named relation and returns
	// the number of rows inserted.
	WriteTable(ctx context.Context, name string, t *table.Table, mode table.WriteMode) (int64, error)

	// LoadCSV appends a headed CSV file to the named relation in chunks of at
	// most chunkSize rows and returns the number of rows appended. Column
	// types are inferred from the whole file. A file that fails leaves the
	// relation unchanged.
	LoadCSV(ctx context.Context, name, path string, chunkSize int, onChunk CSVChunkFunc) (int64, error)

	// DialectName returns the SQL dialect name of the store.
	DialectName() string
}
