package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arenshaw/photodup/pkg/photodup/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "photodup",
		Short: "Find and clean up duplicate photos",
		Long: `Photodup scans a photo library for exact duplicate images and helps
you reclaim disk space by moving redundant copies to the system trash.

Duplicates are detected in two phases: a cheap size-and-sample hash
narrows the candidates, then a full content hash confirms them. Nothing
is ever deleted without an explicit trash command.

Examples:
  photodup root set ~/Pictures   # Choose the managed library
  photodup scan                  # Enumerate the library
  photodup dupes                 # Find duplicate groups
  photodup trash group <hash>    # Trash all but one copy of a group
  photodup watch                 # Keep the index fresh as files change`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/photodup/config.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "pretty", "output format (pretty, plain, json, jsonl, yaml)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "photodup"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "photodup"))
		}
	}

	viper.SetEnvPrefix("PHOTODUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("scan_depth", config.DefaultScanDepth)
	viper.SetDefault("watch_depth", config.DefaultWatchDepth)
	viper.SetDefault("exclude", config.DefaultExclusions)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.retention_days", config.DefaultRetentionDays)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
