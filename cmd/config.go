package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailblocks/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Inspect the effective configuration: .mailblocks.yml merged with
MAILBLOCKS_ environment variables and built-in defaults.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and report problems",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd.Context())
	if err != nil {
		return err
	}
	out, err := marshal(env.config, formatYAML)
	if err != nil {
		return err
	}
	return writeOutput(cmd, ioFlags{}, out)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd.Context())
	if err != nil {
		return err
	}

	result := config.ValidateConfigWithDetails(env.config, env.registry)
	out := cmd.OutOrStdout()
	if report := result.String(); report != "" {
		fmt.Fprint(out, report)
	}
	if result.HasErrors() {
		return fmt.Errorf("configuration %s has %d errors", configPath(), len(result.Errors))
	}
	fmt.Fprintf(out, "✓ configuration %s is valid\n", configPath())
	return nil
}
