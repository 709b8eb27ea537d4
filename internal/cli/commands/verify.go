package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vendorsummary/internal/cli/output"
	"github.com/leapstack-labs/vendorsummary/pkg/core"
)

// VerifyOutput is the JSON output of the verify command.
type VerifyOutput struct {
	Tables []core.TableCount `json:"tables"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "List the tables in the store with their row counts",
		Long: `List every table of the analytical store with its row count.

Use it after a load to check that each CSV file landed in its table.`,
		Example: `  vendorsummary verify
  vendorsummary verify -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			counts, err := cmdCtx.Engine.Verify(cmd.Context())
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(VerifyOutput{Tables: counts})
			}

			if len(counts) == 0 {
				r.Println("No tables found in the database.")
				return nil
			}

			r.Header("Tables")
			rows := make([][]any, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []any{c.Name, c.Rows})
			}
			r.Table([]string{"Table", "Rows"}, rows)
			return nil
		},
	}
}
