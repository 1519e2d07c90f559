package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/internal/infrastructure/cli/helpers"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(session *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, storage and analyzer availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			if container.DoctorService == nil {
				return errors.New(ErrDoctorServiceUnavailable)
			}

			report, err := container.DoctorService.Run(cmd.Context())
			// Display report even if there were errors
			helpers.NewRenderer(cmd.OutOrStdout()).Doctor(report)
			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if !report.Healthy() {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}
