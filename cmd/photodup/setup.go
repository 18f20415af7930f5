package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/arenshaw/photodup/pkg/photodup/config"
	"github.com/arenshaw/photodup/pkg/photodup/history"
	"github.com/arenshaw/photodup/pkg/photodup/logging"
	"github.com/arenshaw/photodup/pkg/photodup/output"
	"github.com/arenshaw/photodup/pkg/photodup/prefs"
	"github.com/arenshaw/photodup/pkg/photodup/service"
	"github.com/arenshaw/photodup/pkg/photodup/store"
)

// withService opens the stores, builds the service, runs fn, and tears
// everything down afterwards.
func withService(fn func(*service.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if rootCmd.PersistentFlags().Changed("exclude") {
		cfg.Exclude = viper.GetStringSlice("exclude")
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logging.Close()

	if err := config.EnsureDataDir(); err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer st.Close()

	pf, err := prefs.Open(config.DefaultPrefsPath())
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}
	defer pf.Close()

	var hist *history.History
	if cfg.History.Enabled {
		dir := cfg.History.Path
		if dir == "" {
			dir, err = config.HistoryDir()
			if err != nil {
				return err
			}
		}
		hist, err = history.New(dir)
		if err != nil {
			return err
		}
		if err := hist.EnsureDir(); err != nil {
			return err
		}
	}

	svc := service.New(cfg, st, pf, hist)
	defer svc.Close()
	return fn(svc)
}

// initLogging wires the file logger from config, honoring --verbose.
func initLogging(cfg *config.Config) error {
	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.Level = "debug"
	}
	if cfg.Logging.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(cfg.Logging.Rotation.MaxSize)
		if err != nil {
			return fmt.Errorf("invalid rotation max_size: %w", err)
		}
		logCfg.Rotation.MaxSize = int64(size)
	}
	logCfg.Rotation.MaxAge = cfg.Logging.Rotation.MaxAge
	logCfg.Rotation.MaxBackups = cfg.Logging.Rotation.MaxBackups
	logCfg.Rotation.Daily = cfg.Logging.Rotation.Daily
	return logging.Init(logCfg)
}

// render formats a Result payload with the selected formatter and prints
// it to stdout. A failed Result becomes an error.
func render(res service.Result, build func() *output.Result) error {
	if !res.Success {
		return errors.New(res.Error)
	}

	formatter, err := output.Get(viper.GetString("format"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, build()); err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}
