package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vendorsummary/internal/cli/output"
	"github.com/leapstack-labs/vendorsummary/internal/engine"
	"github.com/leapstack-labs/vendorsummary/internal/ingest"
)

// RunOptions holds options for the run, load and summarize commands.
type RunOptions struct {
	Preview int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load raw CSV files and build the vendor summary",
		Long: `Run the full pipeline.

Every *.csv file in the data directory is appended to a table named after the
file, then vendor_sales_summary is rebuilt from purchases, purchase_prices,
sales and vendor_invoice. A file that fails to load is reported and does not
stop the run.`,
		Example: `  # Run the pipeline with vendorsummary.yaml from the current project
  vendorsummary run

  # Use another data directory and database
  vendorsummary run --data-dir ./exports --database ./inventory.duckdb

  # Show the first rows of the summary
  vendorsummary run --preview 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunPipeline(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Preview, "preview", 0, "Print the first N rows of the summary")
	return cmd
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Append raw CSV files to the store",
		Long: `Append every *.csv file of the data directory to the store.

Each file loads into a table named after the file (purchases.csv -> purchases)
in chunks of --chunk-size rows. Loading appends: running it twice doubles the
rows.`,
		Example: `  vendorsummary load --data-dir ./data --chunk-size 50000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Cfg.ValidateDataDir(); err != nil {
				return err
			}

			start := time.Now()
			res, err := cmdCtx.Engine.Load(cmd.Context())
			return renderResult(cmdCtx, res, err, 0, start)
		},
	}
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Build the vendor summary from tables already in the store",
		Long: `Aggregate purchases, purchase_prices, sales and vendor_invoice per vendor
and brand, derive GrossProfit, ProfitMargin, StockTurnover and
SalestoPurchaseRatio, and write the result to the summary table.

Ratios with a zero denominator are NaN. The table is replaced unless
--write-mode append is given.`,
		Example: `  vendorsummary summarize
  vendorsummary summarize --write-mode append --preview 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			start := time.Now()
			res, err := cmdCtx.Engine.Summarize(cmd.Context())
			return renderResult(cmdCtx, res, err, opts.Preview, start)
		},
	}

	cmd.Flags().IntVar(&opts.Preview, "preview", 0, "Print the first N rows of the summary")
	return cmd
}

// RunPipeline runs the full pipeline. It backs both the run command and the
// root command without arguments.
func RunPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.Cfg.ValidateDataDir(); err != nil {
		return err
	}

	start := time.Now()
	res, err := cmdCtx.Engine.Run(cmd.Context())
	return renderResult(cmdCtx, res, err, opts.Preview, start)
}

// FileOutput is the JSON form of one loaded file.
type FileOutput struct {
	File      string `json:"file"`
	Table     string `json:"table"`
	Rows      int64  `json:"rows"`
	Chunks    int    `json:"chunks"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// SummaryOutput is the JSON form of the summary step.
type SummaryOutput struct {
	Table   string   `json:"table"`
	Mode    string   `json:"mode"`
	Rows    int      `json:"rows"`
	Written int64    `json:"written"`
	Columns []string `json:"columns"`
}

// RunOutput is the JSON output of run, load and summarize.
type RunOutput struct {
	RunID     string         `json:"run_id"`
	Command   string         `json:"command"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Files     []FileOutput   `json:"files,omitempty"`
	Summary   *SummaryOutput `json:"summary,omitempty"`
	Skipped   bool           `json:"skipped,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms"`
}

func buildRunOutput(cmdCtx *CommandContext, res *engine.Result, elapsed time.Duration) *RunOutput {
	out := &RunOutput{
		RunID:     res.Run.ID,
		Command:   res.Run.Command,
		Status:    string(res.Run.Status),
		Error:     res.Run.Error,
		Skipped:   res.Skipped,
		ElapsedMS: elapsed.Milliseconds(),
	}
	if res.Load != nil {
		for _, f := range res.Load.Files {
			out.Files = append(out.Files, fileOutput(f))
		}
	}
	if res.Summary != nil {
		out.Summary = &SummaryOutput{
			Table:   cmdCtx.Cfg.Summary.Table,
			Mode:    cmdCtx.Cfg.Summary.WriteMode,
			Rows:    res.Summary.Rows,
			Written: res.Summary.Written,
			Columns: res.Summary.Table.Columns,
		}
	}
	return out
}

func fileOutput(f ingest.FileResult) FileOutput {
	fo := FileOutput{
		File:      f.File,
		Table:     f.Table,
		Rows:      f.Rows,
		Chunks:    f.Chunks,
		Status:    "success",
		ElapsedMS: f.CompletedAt.Sub(f.StartedAt).Milliseconds(),
	}
	if f.Err != nil {
		fo.Status = "failed"
		fo.Error = f.Err.Error()
	}
	return fo
}

// renderResult prints what a pipeline invocation did and returns runErr
// wrapped for the caller.
func renderResult(cmdCtx *CommandContext, res *engine.Result, runErr error, preview int, start time.Time) error {
	if res == nil {
		return runErr
	}

	r := cmdCtx.Renderer
	out := buildRunOutput(cmdCtx, res, time.Since(start))

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
		return wrapRunErr(runErr)
	}

	if res.Load != nil {
		r.Header("Load")
		rows := make([][]any, 0, len(out.Files))
		for _, f := range out.Files {
			rows = append(rows, []any{f.File, f.Table, f.Rows, f.Chunks, f.Status})
		}
		r.Table([]string{"File", "Table", "Rows", "Chunks", "Status"}, rows)
		for _, f := range out.Files {
			if f.Error != "" {
				r.Error(fmt.Sprintf("%s: %s", f.File, f.Error))
			}
		}
		if len(out.Files) == 0 {
			r.Warning("no CSV files found in " + cmdCtx.Cfg.DataDir)
		}
	}

	switch {
	case out.Summary != nil:
		r.Header("Summary")
		r.Success(fmt.Sprintf("wrote %d rows to %s (%s)", out.Summary.Written, out.Summary.Table, out.Summary.Mode))
		if preview > 0 {
			renderPreview(r, res, preview)
		}
	case res.Skipped:
		r.Header("Summary")
		r.Warning("vendor summary is empty, nothing was written; see the log for the aggregation error")
	}

	r.Muted(fmt.Sprintf("run %s %s in %s", out.RunID, out.Status, time.Duration(out.ElapsedMS)*time.Millisecond))
	if runErr != nil || res.Skipped || len(res.Load.Failed()) > 0 {
		r.Muted(output.FormatKeyValue("log", cmdCtx.Cfg.Log.File))
	}
	return wrapRunErr(runErr)
}

func renderPreview(r *output.Renderer, res *engine.Result, n int) {
	head := res.Summary.Table.Head(n)
	r.Println()
	r.Table(head.Columns, head.Rows)
}

func wrapRunErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("run failed: %w", err)
}
