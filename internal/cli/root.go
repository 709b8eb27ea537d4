// Package cli provides the command-line interface for vendorsummary.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vendorsummary/internal/cli/commands"
	"github.com/leapstack-labs/vendorsummary/internal/cli/config"
	"github.com/leapstack-labs/vendorsummary/internal/logging"
)

var (
	cfgFile string
	// closeLog closes the log file opened for the current invocation.
	closeLog func() error
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig lists commands that run without loading the configuration.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vendorsummary",
		Short: "vendorsummary - vendor performance summaries from raw inventory data",
		Long: `vendorsummary loads raw purchase, price, sales and freight CSV files into
a DuckDB store and builds a per vendor and brand performance summary from them.

Running it without a subcommand loads the data directory and then builds
the summary, exactly like "vendorsummary run".`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			var mirrors []io.Writer
			if cfg.Verbose {
				mirrors = append(mirrors, cmd.ErrOrStderr())
			}
			_ = CloseLog()
			logger, closer, err := logging.Open(cfg.Log.File, level, mirrors...)
			if err != nil {
				return err
			}
			closeLog = closer

			logger.Debug("configuration loaded",
				"config_file", config.GetConfigFileUsed(),
				"project_root", cfg.ProjectRoot,
				"data_dir", cfg.DataDir,
				"database", cfg.Target.Database,
				"state", cfg.StatePath)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
			}

			cmd.SetContext(config.WithLogger(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.RunPipeline(cmd, &commands.RunOptions{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and DuckDB
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./vendorsummary.yaml)")
	pf.String("data-dir", "", "Directory holding the raw CSV files")
	pf.String("database", "", "Path to the DuckDB store (:memory: for in-memory)")
	pf.String("state", "", "Path to the run history database")
	pf.String("log-file", "", "Path to the log file")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.Int("chunk-size", 0, "Rows appended per write while loading")
	pf.String("write-mode", "", "How the summary table is written (replace|append)")
	pf.BoolP("verbose", "v", false, "Verbose output (mirrors the log to stderr)")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("write-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"replace", "append"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewLoadCommand())
	rootCmd.AddCommand(commands.NewSummarizeCommand())
	rootCmd.AddCommand(commands.NewVerifyCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if cerr := CloseLog(); cerr != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", cerr)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// CloseLog closes the log file of the last invocation, if one is open.
func CloseLog() error {
	if closeLog == nil {
		return nil
	}
	err := closeLog()
	closeLog = nil
	return err
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for vendorsummary.

To load completions:

Bash:
  $ source <(vendorsummary completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ vendorsummary completion bash > /etc/bash_completion.d/vendorsummary
  # macOS:
  $ vendorsummary completion bash > $(brew --prefix)/etc/bash_completion.d/vendorsummary

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ vendorsummary completion zsh > "${fpath[1]}/_vendorsummary"

Fish:
  $ vendorsummary completion fish | source

PowerShell:
  PS> vendorsummary completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
