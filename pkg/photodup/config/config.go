package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	ScanDepth  int      `mapstructure:"scan_depth"`
	WatchDepth int      `mapstructure:"watch_depth"`
	Exclude    []string `mapstructure:"exclude"`
	History    struct {
		Enabled       bool   `mapstructure:"enabled"`
		Path          string `mapstructure:"path"`
		RetentionDays int    `mapstructure:"retention_days"`
	} `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/photodup/config.yaml
//   - $HOME/.config/photodup/config.yaml
//
// Environment variables are prefixed with PHOTODUP_ (e.g., PHOTODUP_SCAN_DEPTH).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "photodup"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "photodup"))

	v.SetEnvPrefix("PHOTODUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("scan_depth", DefaultScanDepth)
	v.SetDefault("watch_depth", DefaultWatchDepth)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.retention_days", DefaultRetentionDays)
	v.SetDefault("history.path", filepath.Join(homeDir, ".config", "photodup", ".history"))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"hasher":  "info",
		"watcher": "warn",
		"dedup":   "info",
		"trash":   "info",
	})

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ScanDepth = ClampScanDepth(cfg.ScanDepth)

	// Expand ~ in history path if present
	if strings.HasPrefix(cfg.History.Path, "~") {
		cfg.History.Path = filepath.Join(homeDir, cfg.History.Path[1:])
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "photodup"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "photodup"), nil
}

// HistoryDir returns the operation history directory path.
func HistoryDir() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, ".history"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	historyDir, err := HistoryDir()
	if err != nil {
		return err
	}

	defaultConfig := fmt.Sprintf(`# Photodup Configuration

# Maximum recursion depth for full scans (clamped to [%d, %d])
scan_depth: %d

# Recursion depth for the filesystem watcher
watch_depth: %d

# Directory name fragments to skip while scanning
exclude:
  - .git
  - .svn
  - node_modules

# Operation history for scans and trash batches
history:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/photodup/photodup.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    scanner: info
    hasher: info
    watcher: warn
    dedup: info
    trash: info
`, MinScanDepth, MaxScanDepth, DefaultScanDepth, DefaultWatchDepth, historyDir, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/photodup/ for the image database and
// preference store.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "photodup")
}

// StateDir returns $XDG_STATE_HOME/photodup/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "photodup")
}

// DefaultDBPath returns the default image database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "photodup.db")
}

// DefaultPrefsPath returns the default preference store path.
func DefaultPrefsPath() string {
	return filepath.Join(DataDir(), "prefs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "photodup.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
