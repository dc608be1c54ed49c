package cmd

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/vowelspace/internal/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create configuration files",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration as YAML",
	Long: `Print the configuration after defaults, config file, environment
(VOWELSPACE_*), run config and flags have been merged.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init <file>",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration to <file>. The format follows the file
extension: .json, .toml, otherwise YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a run configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(a.Config())
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := app.GenerateExampleConfig(args[0]); err != nil {
		return err
	}
	printSuccess("Wrote %s", args[0])
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := app.ValidateConfigFile(args[0])
	if err != nil {
		printError("%v", err)
		return err
	}
	printSuccess("Configuration is valid")
	printKeyValue("Inventory", cfg.Inventory.Mode)
	printKeyValue("Workers", fmt.Sprintf("%d", cfg.Extract.Workers))
	printKeyValue("Output Format", cfg.OutputFormat)
	return nil
}
