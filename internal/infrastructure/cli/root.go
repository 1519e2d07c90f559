package cli

import (
	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli/commands"
)

// NewRootCmd wires the cobra root command. The container is built lazily by
// each subcommand so that persistent flags are parsed first.
func NewRootCmd(opts app.Options) *cobra.Command {
	session := &commands.Session{Options: opts}

	root := &cobra.Command{
		Use:   "emperator",
		Short: "Emperator - polyglot static analysis orchestrator",
		Long: `Emperator probes a project for languages and installed analyzers, builds a
deterministic analysis plan, runs it, and gates the result as PASS, REVIEW or
BLOCK. Every run is recorded as telemetry keyed by the plan fingerprint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&session.Options.Root, "root", ".", "Project root to analyze")
	flags.StringVar(&session.Options.ConfigPath, "config", "", "Config file (default <root>/.emperator/config.yaml)")
	flags.BoolVarP(&session.Options.Verbose, "verbose", "v", opts.Verbose, "Enable debug logging")

	root.AddCommand(
		commands.NewPlanCommand(session),
		commands.NewInspectCommand(session),
		commands.NewRunCommand(session),
		commands.NewHistoryCommand(session),
		commands.NewDoctorCommand(session),
		commands.NewConfigCommand(session),
		commands.NewInitCommand(session),
		commands.NewMCPCommand(session),
		commands.NewVersionCommand(),
	)
	return root
}
