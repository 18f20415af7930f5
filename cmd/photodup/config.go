package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arenshaw/photodup/pkg/photodup/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage photodup configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/photodup/config.yaml (if set)
  2. ~/.config/photodup/config.yaml

Environment variables can override config file settings using the PHOTODUP_ prefix:
  PHOTODUP_SCAN_DEPTH=5
  PHOTODUP_WATCH_DEPTH=2
  PHOTODUP_EXCLUDE=.git,node_modules`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		printError("Failed to load configuration: %v", err)
		// Show defaults anyway
		cfg = &config.Config{
			ScanDepth:  config.DefaultScanDepth,
			WatchDepth: config.DefaultWatchDepth,
			Exclude:    config.DefaultExclusions,
		}
		cfg.History.Enabled = true
		cfg.History.RetentionDays = config.DefaultRetentionDays
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("scan_depth:             %d\n", cfg.ScanDepth)
	fmt.Printf("watch_depth:            %d\n", cfg.WatchDepth)
	fmt.Printf("exclude:                %v\n", cfg.Exclude)
	fmt.Printf("history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Printf("history.path:           %s\n", cfg.History.Path)
	fmt.Printf("history.retention_days: %d days\n", cfg.History.RetentionDays)
	fmt.Printf("logging.level:          %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:           %s\n", cfg.Logging.Path)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []struct {
		name string
		key  string
	}{
		{"PHOTODUP_SCAN_DEPTH", "scan_depth"},
		{"PHOTODUP_WATCH_DEPTH", "watch_depth"},
		{"PHOTODUP_EXCLUDE", "exclude"},
		{"PHOTODUP_HISTORY_ENABLED", "history.enabled"},
		{"PHOTODUP_HISTORY_PATH", "history.path"},
		{"PHOTODUP_HISTORY_RETENTION_DAYS", "history.retention_days"},
		{"PHOTODUP_LOGGING_LEVEL", "logging.level"},
	}

	anyOverrides := false
	for _, ev := range envVars {
		if val := os.Getenv(ev.name); val != "" {
			fmt.Printf("%s=%s\n", ev.name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'photodup config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Println(filepath.Join(configDir, "config.yaml"))
	return nil
}
