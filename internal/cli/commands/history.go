package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vendorsummary/internal/cli/output"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	Steps bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		Long: `Show the runs recorded in the state database, newest first.

Each run lists its command, status and duration. With --steps every file
load and summary build of the run is listed too.`,
		Example: `  vendorsummary history
  vendorsummary history --limit 3 --steps`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			history, err := cmdCtx.Engine.History(opts.Limit)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(history)
			}

			if len(history) == 0 {
				r.Println("No runs recorded yet.")
				return nil
			}

			r.Header("Runs")
			rows := make([][]any, 0, len(history))
			for _, h := range history {
				rows = append(rows, []any{
					shortID(h.ID),
					h.Command,
					string(h.Status),
					h.StartedAt.Local().Format(time.DateTime),
					runDuration(h.StartedAt, h.CompletedAt),
					len(h.Steps),
				})
			}
			r.Table([]string{"Run", "Command", "Status", "Started", "Duration", "Steps"}, rows)

			for _, h := range history {
				if h.Error != "" {
					r.Warning(fmt.Sprintf("%s: %s", shortID(h.ID), h.Error))
				}
			}

			if !opts.Steps {
				return nil
			}
			for _, h := range history {
				if len(h.Steps) == 0 {
					continue
				}
				r.Println()
				r.Header("Run " + shortID(h.ID))
				steps := make([][]any, 0, len(h.Steps))
				for _, s := range h.Steps {
					steps = append(steps, []any{string(s.Kind), s.Target, s.Rows, string(s.Status), s.Duration().Round(time.Millisecond).String(), s.Error})
				}
				r.Table([]string{"Step", "Target", "Rows", "Status", "Duration", "Error"}, steps)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "Show the steps of each run")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(start time.Time, end *time.Time) string {
	if end == nil {
		return "-"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}
