package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"followexport/pkg/config"
	"followexport/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage followexport configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (FOLLOWEXPORT_*) and .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write every option with its default value to .followexport.yaml, or to the
path given with --config.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and check it.

This command checks:
  - YAML syntax
  - Value ranges
  - Output directory accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".followexport.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Set browser.url to your following page")
	fmt.Fprintln(ui.Output, "2. Point browser.user_data_dir at a Chrome profile logged in to Weibo")
	fmt.Fprintln(ui.Output, "3. Run 'followexport export'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	if cfg.Browser.URL == "" {
		ui.PrintWarning("browser.url is not set", "export will need --url or --snapshot")
	}
	if cfg.Browser.UserDataDir == "" {
		ui.PrintWarning("browser.user_data_dir is not set", "Chrome will start without a Weibo login")
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Output directory", cfg.Output.BaseDirectory)
	ui.PrintInfo("Tick interval", cfg.Harvest.TickInterval.String())
	ui.PrintInfo("Max ticks", fmt.Sprintf("%d", cfg.Harvest.MaxTicks))
	ui.PrintInfo("Avatar concurrency", fmt.Sprintf("%d", cfg.Enrich.MaxConcurrency))
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
