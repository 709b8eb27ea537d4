package core

import "time"

// Store defines the interface for the run ledger.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(command string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(limit int) ([]*Run, error)

	// Step operations
	RecordStep(step *RunStep) error
	GetStepsForRun(runID string) ([]*RunStep, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one invocation of the pipeline.
type Run struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// StepKind identifies what a run step did.
type StepKind string

// Step kinds.
const (
	StepLoad      StepKind = "load"
	StepSummarize StepKind = "summarize"
)

// StepStatus represents the outcome of a single step.
type StepStatus string

// Step status values.
const (
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// RunStep records one unit of work inside a run: a file load or the summary build.
type RunStep struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id"`
	Kind        StepKind   `json:"kind"`
	Target      string     `json:"target"`
	Source      string     `json:"source,omitempty"`
	Rows        int64      `json:"rows"`
	Status      StepStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Duration returns how long the step took.
func (s *RunStep) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}
