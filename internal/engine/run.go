package engine

// run.go - pipeline orchestration and run ledger bookkeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/vendorsummary/internal/ingest"
	"github.com/leapstack-labs/vendorsummary/internal/summary"
	"github.com/leapstack-labs/vendorsummary/pkg/core"
)

// Commands recorded in the run ledger.
const (
	CommandRun       = "run"
	CommandLoad      = "load"
	CommandSummarize = "summarize"
)

// Result describes what a pipeline invocation did.
type Result struct {
	Run     *core.Run
	Load    *ingest.Report
	Summary *summary.Result
	// Skipped is set when the summary was empty and nothing was written.
	Skipped bool
}

// Run loads every CSV file of the data directory and then builds the summary.
// A file that fails to load is recorded and does not stop the run.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	return e.execute(ctx, CommandRun, func(ctx context.Context, res *Result) error {
		if err := e.load(ctx, res); err != nil {
			return err
		}
		return e.summarize(ctx, res)
	})
}

// Load appends the raw CSV files to the store.
func (e *Engine) Load(ctx context.Context) (*Result, error) {
	return e.execute(ctx, CommandLoad, e.load)
}

// Summarize builds, cleans and writes the vendor summary from tables
// already in the store.
func (e *Engine) Summarize(ctx context.Context) (*Result, error) {
	return e.execute(ctx, CommandSummarize, e.summarize)
}

func (e *Engine) execute(ctx context.Context, command string, fn func(context.Context, *Result) error) (*Result, error) {
	e.logger.Info("starting run", "command", command)

	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun(command)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Debug("created run", "run_id", run.ID)

	res := &Result{Run: run}
	runErr := fn(ctx, res)

	if runErr != nil {
		e.logger.Info("run failed", "run_id", run.ID, "error", runErr.Error())
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, runErr.Error())
	} else {
		e.logger.Info("run completed", "run_id", run.ID)
		_ = e.store.CompleteRun(run.ID, core.RunStatusCompleted, "")
	}

	if updated, err := e.store.GetRun(run.ID); err == nil {
		res.Run = updated
	}
	return res, runErr
}

func (e *Engine) load(ctx context.Context, res *Result) error {
	report, err := e.newLoader().LoadDir(ctx, e.dataDir)
	if err != nil {
		return err
	}
	res.Load = report

	for _, f := range report.Files {
		step := &core.RunStep{
			RunID:       res.Run.ID,
			Kind:        core.StepLoad,
			Target:      f.Table,
			Source:      f.Path,
			Rows:        f.Rows,
			Status:      core.StepStatusSuccess,
			StartedAt:   f.StartedAt,
			CompletedAt: f.CompletedAt,
		}
		if f.Err != nil {
			step.Status = core.StepStatusFailed
			step.Error = f.Err.Error()
		}
		e.recordStep(step)
	}

	if failed := report.Failed(); len(failed) > 0 {
		e.logger.Warn("some files failed to load", "failed", len(failed), "error", report.Err())
	}
	return nil
}

func (e *Engine) summarize(ctx context.Context, res *Result) error {
	opts := e.summaryOptions()
	step := &core.RunStep{
		RunID:     res.Run.ID,
		Kind:      core.StepSummarize,
		Target:    opts.Table,
		StartedAt: time.Now(),
	}
	if step.Target == "" {
		step.Target = summary.DefaultTable
	}

	out, err := summary.Run(ctx, e.db, opts)
	step.CompletedAt = time.Now()

	switch {
	case errors.Is(err, summary.ErrEmptySummary):
		res.Skipped = true
		step.Status = core.StepStatusSkipped
		step.Error = err.Error()
		e.recordStep(step)
		return nil
	case err != nil:
		step.Status = core.StepStatusFailed
		step.Error = err.Error()
		e.recordStep(step)
		return err
	}

	res.Summary = out
	step.Status = core.StepStatusSuccess
	step.Rows = out.Written
	e.recordStep(step)
	return nil
}

// recordStep writes a step to the ledger. A ledger failure is logged and
// never fails the pipeline.
func (e *Engine) recordStep(step *core.RunStep) {
	if err := e.store.RecordStep(step); err != nil {
		e.logger.Warn("failed to record step", "run_id", step.RunID, "target", step.Target, "error", err)
	}
}

// Verify lists every table in the store with its row count.
func (e *Engine) Verify(ctx context.Context) ([]core.TableCount, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	tables, err := e.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]core.TableCount, 0, len(tables))
	for _, name := range tables {
		n, err := e.db.CountRows(ctx, name)
		if err != nil {
			return nil, err
		}
		counts = append(counts, core.TableCount{Name: name, Rows: n})
	}

	if len(counts) == 0 {
		e.logger.Info("no tables found in the database")
	}
	return counts, nil
}

// RunHistory pairs a run with its recorded steps.
type RunHistory struct {
	*core.Run
	Steps []*core.RunStep `json:"steps"`
}

// History returns the most recent runs, newest first, with their steps.
// A limit of zero or less returns every run.
func (e *Engine) History(limit int) ([]RunHistory, error) {
	runs, err := e.store.ListRuns(limit)
	if err != nil {
		return nil, err
	}

	out := make([]RunHistory, 0, len(runs))
	for _, run := range runs {
		steps, err := e.store.GetStepsForRun(run.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RunHistory{Run: run, Steps: steps})
	}
	return out, nil
}
