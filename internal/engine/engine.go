// Package engine runs the vendor summary pipeline.
// It owns the analytical store connection and the run ledger, and records
// every load and summarize step it performs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/vendorsummary/internal/ingest"
	"github.com/leapstack-labs/vendorsummary/internal/state"
	"github.com/leapstack-labs/vendorsummary/internal/summary"
	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
	"github.com/leapstack-labs/vendorsummary/pkg/table"

	_ "github.com/leapstack-labs/vendorsummary/pkg/adapters/duckdb" // registers the duckdb store
)

// Engine orchestrates loading, summarizing and verifying the store.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger *slog.Logger
	store  state.Store

	dataDir      string
	chunkSize    int
	summaryTable string
	writeMode    table.WriteMode
	previewRows  int
}

// Config holds engine configuration.
type Config struct {
	// Target is the analytical store configuration.
	Target adapter.Config
	// StatePath is the path to the SQLite run ledger (":memory:" when empty).
	StatePath string
	// DataDir is the directory holding the raw CSV files.
	DataDir string
	// ChunkSize is the number of rows appended per write during load.
	ChunkSize int
	// SummaryTable is the relation the summary is written to.
	SummaryTable string
	// WriteMode is how the summary is written (default replace).
	WriteMode table.WriteMode
	// PreviewRows is passed to summary.Options.
	PreviewRows int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a new engine with a lazy store connection.
// The run ledger is opened and migrated immediately.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dbConfig := cfg.Target
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}
	if !adapter.IsRegistered(dbConfig.Type) {
		return nil, &adapter.UnknownAdapterError{Type: dbConfig.Type, Available: adapter.ListAdapters()}
	}

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = ":memory:"
	}

	logger.Debug("initializing engine", "data_dir", cfg.DataDir, "store", dbConfig.Type, "state", statePath)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(statePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &Engine{
		dbConfig:     dbConfig,
		logger:       logger,
		store:        store,
		dataDir:      cfg.DataDir,
		chunkSize:    cfg.ChunkSize,
		summaryTable: cfg.SummaryTable,
		writeMode:    cfg.WriteMode,
		previewRows:  cfg.PreviewRows,
	}, nil
}

// ensureDBConnected lazily connects to the analytical store.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type, "path", e.dbConfig.Path)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}

	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected", "dialect", db.DialectName())
	return nil
}

// Close releases the store connection and the run ledger.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		e.db = nil
		e.dbConnected = false
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close state store: %w", err))
		}
		e.store = nil
	}
	return errors.Join(errs...)
}

// DB returns the connected store adapter, connecting if needed.
func (e *Engine) DB(ctx context.Context) (adapter.Adapter, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db, nil
}

// GetStateStore returns the run ledger.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}

// DataDir returns the configured raw data directory.
func (e *Engine) DataDir() string {
	return e.dataDir
}

func (e *Engine) summaryOptions() summary.Options {
	return summary.Options{
		Table:       e.summaryTable,
		Mode:        e.writeMode,
		PreviewRows: e.previewRows,
		Logger:      e.logger,
	}
}

func (e *Engine) newLoader() *ingest.Loader {
	return ingest.NewLoader(e.db, e.chunkSize, e.logger)
}
