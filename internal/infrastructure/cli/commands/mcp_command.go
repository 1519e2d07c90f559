package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/domain"
	mcpserver "github.com/emperator-dev/emperator/internal/infrastructure/mcp"
	"github.com/emperator-dev/emperator/internal/ports"
	"github.com/emperator-dev/emperator/internal/version"
)

// NewMCPCommand creates the mcp command
func NewMCPCommand(session *Session) *cobra.Command {
	var storeKind, storePath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve plan and telemetry queries over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			opened, err := container.OpenStore(app.StoreOptions{Kind: storeKind, Dir: storePath})
			if err != nil {
				return err
			}
			var store ports.TelemetryStore
			if opened != nil {
				defer opened.Close()
				store = opened
			}

			plan := func(ctx context.Context, tools []string) (domain.AnalysisPlan, string, error) {
				analysis, err := container.Analyze(ctx, tools, nil)
				return analysis.Plan, analysis.Fingerprint, err
			}
			s := mcpserver.New(mcpserver.Deps{Plan: plan, Store: store}, version.Version)
			return mcpserver.Serve(s)
		},
	}

	cmd.Flags().StringVar(&storeKind, "store", "", "Telemetry store: memory|file|sqlite|off (default from config)")
	cmd.Flags().StringVar(&storePath, "store-path", "", "Override the telemetry storage directory")
	return cmd
}
