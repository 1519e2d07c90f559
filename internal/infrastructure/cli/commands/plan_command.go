package commands

import (
	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli/helpers"
)

type planOutput struct {
	Fingerprint string              `json:"fingerprint" yaml:"fingerprint"`
	Plan        domain.AnalysisPlan `json:"plan" yaml:"plan"`
}

// NewPlanCommand creates the plan command
func NewPlanCommand(session *Session) *cobra.Command {
	var (
		tools  []string
		meta   []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the analysis plan and its fingerprint without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			extra, err := parseMeta(meta)
			if err != nil {
				return err
			}
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			analysis, err := container.Analyze(cmd.Context(), tools, extra)
			if err != nil {
				return err
			}
			if format != FormatTable {
				return writeStructured(cmd.OutOrStdout(), format, planOutput{Fingerprint: analysis.Fingerprint, Plan: analysis.Plan})
			}
			helpers.NewRenderer(cmd.OutOrStdout()).Plan(analysis.Plan, analysis.Fingerprint)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tools, "tool", nil, "Only plan these tools (repeatable)")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Extra key=value folded into the fingerprint (repeatable)")
	cmd.Flags().StringVar(&format, "format", FormatTable, "Output format: table|json|yaml")
	return cmd
}

// NewInspectCommand creates the inspect command
func NewInspectCommand(session *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show detected languages, analyzer availability and hints",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			analysis, err := container.Analyze(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			r := helpers.NewRenderer(cmd.OutOrStdout())
			r.Languages(analysis.Plan.Languages)
			r.Tools(analysis.Plan.Tools)
			r.Hints(analysis.Plan.Hints)
			return nil
		},
	}
}
