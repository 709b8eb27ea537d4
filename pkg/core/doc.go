// Package core defines the shared language of the vendorsummary system.
//
// This package contains:
//   - Store connection types (AdapterConfig, Column, TableMetadata, Rows)
//   - Run ledger entities (Run, RunStep) and their statuses
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
