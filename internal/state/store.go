// Package state records pipeline runs and their steps in a SQLite ledger.
package state

import (
	"github.com/leapstack-labs/vendorsummary/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// RunStep is an alias for core.RunStep.
	RunStep = core.RunStep
)

const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
)

var _ Store = (*SQLiteStore)(nil)
