package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/domain"
	configinfra "github.com/emperator-dev/emperator/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(session *Session) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect emperator configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, session)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfiguration(cmd, session)
			},
		},
		&cobra.Command{
			Use:   "get <key.path>",
			Short: "Get a configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return getConfigurationValue(cmd, session, args[0])
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration file and environment overrides",
			RunE: func(cmd *cobra.Command, args []string) error {
				return validateConfiguration(cmd, session)
			},
		},
		&cobra.Command{
			Use:   "diff",
			Short: "Show differences from the built-in defaults",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfigurationDiff(cmd, session)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file in effect",
			RunE: func(cmd *cobra.Command, args []string) error {
				loader, _, err := app.NewConfigLoader(session.Options)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), loader.Path())
				return nil
			},
		},
	)

	return configCmd
}

// loadConfiguration loads without building the rest of the container so that
// load errors surface verbatim.
func loadConfiguration(cmd *cobra.Command, session *Session) (domain.Config, *configinfra.FileLoader, error) {
	loader, _, err := app.NewConfigLoader(session.Options)
	if err != nil {
		return domain.Config{}, nil, err
	}
	if loader == nil {
		return domain.Config{}, nil, errors.New(ErrConfigLoaderUnavailable)
	}
	cfg, err := loader.Load(cmd.Context())
	if err != nil {
		return domain.Config{}, loader, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, loader, nil
}

// showConfiguration displays the full configuration in YAML format
func showConfiguration(cmd *cobra.Command, session *Session) error {
	cfg, _, err := loadConfiguration(cmd, session)
	if err != nil {
		return err
	}
	return writeYAML(cmd.OutOrStdout(), cfg)
}

// getConfigurationValue retrieves a specific configuration value by key path
func getConfigurationValue(cmd *cobra.Command, session *Session, keyPath string) error {
	cfg, _, err := loadConfiguration(cmd, session)
	if err != nil {
		return err
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to unmarshal to generic map: %w", err)
	}

	value, found := traverse(generic, strings.Split(keyPath, "."))
	if !found {
		return fmt.Errorf("key %s not found in configuration", keyPath)
	}
	return writeYAML(cmd.OutOrStdout(), value)
}

func validateConfiguration(cmd *cobra.Command, session *Session) error {
	_, loader, err := loadConfiguration(cmd, session)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", MsgConfigurationValid, loader.Path())
	return nil
}

// showConfigurationDiff shows the difference between current and default configuration
func showConfigurationDiff(cmd *cobra.Command, session *Session) error {
	current, _, err := loadConfiguration(cmd, session)
	if err != nil {
		return err
	}
	defaults, err := configinfra.Defaults()
	if err != nil {
		return fmt.Errorf("failed to load default configuration: %w", err)
	}

	diff := cmp.Diff(defaults, current)
	out := cmd.OutOrStdout()
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}
	fmt.Fprintln(out, diff)
	return nil
}

func traverse(node interface{}, keys []string) (interface{}, bool) {
	current := node
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func writeYAML(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}
