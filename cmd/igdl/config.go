package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igdl/pkg/auth"
	"igdl/pkg/config"
	"igdl/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igdl configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (IGDL_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option set to its default.

The file is created at the --config path, or at the per-user location
($XDG_CONFIG_HOME/igdl/config.yaml) when no path is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging flags, environment, config file and
defaults. The password is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", path)
		return errReported
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file, or store your login with 'igdl auth login'")
	fmt.Println("2. Run 'igdl config validate' to check it")
	fmt.Println("3. Start downloading with 'igdl <url>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	display := *cfg
	display.Instagram.Password = auth.Mask(display.Instagram.Password)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = "(search path)"
	}
	ui.PrintInfo("Validating configuration", source)

	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return errReported
	}

	if cfg.Instagram.Username == "" || cfg.Instagram.Password == "" {
		ui.PrintWarning("Instagram login not configured; pass -u/-p or run 'igdl auth login'")
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Download.OutputDir)
	fmt.Printf("  Concurrency: %d\n", cfg.Download.Concurrency)
	if limit := cfg.Download.PostLimit(); limit >= 0 {
		fmt.Printf("  Max posts: %d\n", limit)
	} else {
		fmt.Println("  Max posts: all")
	}
	fmt.Printf("  Fetcher: %s\n", cfg.Instagram.Fetcher)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
