package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/assets"
	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli/helpers"
)

const (
	msgInitCancelled = "Init cancelled."
)

// NewInitCommand creates the init command. It writes the built-in defaults to
// .emperator/config.yaml under the project root so they can be edited.
func NewInitCommand(session *Session) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration into the project",
		Long: `Write the default configuration into .emperator/config.yaml.

After initialization, you should:
  1. Adjust tool commands and severities in the config file
  2. Run 'emperator doctor' to verify analyzers are installed
  3. Run 'emperator plan' to see what would execute`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, session, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config without prompting")

	return cmd
}

func runInit(cmd *cobra.Command, session *Session, force bool) error {
	loader, _, err := app.NewConfigLoader(session.Options)
	if err != nil {
		return err
	}
	configPath := loader.Path()

	if !shouldProceedWithInit(cmd, configPath, force) {
		fmt.Fprintln(cmd.OutOrStdout(), msgInitCancelled)
		return nil
	}

	if err := backupExistingConfig(cmd.ErrOrStderr(), configPath); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, assets.DefaultConfigYAML, domain.FilePermissions); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	displayCompletionInstructions(cmd.OutOrStdout(), configPath)
	return nil
}

// shouldProceedWithInit checks if we should proceed with initialization
func shouldProceedWithInit(cmd *cobra.Command, configPath string, force bool) bool {
	if _, err := os.Stat(configPath); err != nil {
		return true
	}
	if force {
		return true
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	question := fmt.Sprintf("%s exists. Overwrite?", configPath)
	return helpers.PromptForYesNo(cmd.OutOrStdout(), reader, question, false)
}

// backupExistingConfig copies an existing config aside before overwriting it
func backupExistingConfig(out io.Writer, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}
	backupPath := fmt.Sprintf("%s.%s.bak", configPath, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.WriteFile(backupPath, data, domain.FilePermissions); err != nil {
		return fmt.Errorf("failed to create configuration backup: %w", err)
	}
	fmt.Fprintf(out, "Existing config backed up to: %s\n", backupPath)
	return nil
}

// displayCompletionInstructions displays instructions after successful initialization
func displayCompletionInstructions(out io.Writer, configPath string) {
	fmt.Fprintf(out, "Configuration initialized: %s\n\n", configPath)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Review tool definitions in the config file")
	fmt.Fprintln(out, "  2. Verify your setup:  emperator doctor")
	fmt.Fprintln(out, "  3. Preview the plan:   emperator plan")
}
