package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arenshaw/photodup/pkg/photodup/service"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the library and its effective settings",
	Long: `Show where the library lives, how many images are cataloged, when it
was last scanned, and the scan and watch settings in effect.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.Info(cmd.Context())
		if !res.Success {
			return errors.New(res.Error)
		}

		info := res.Data.(service.LibraryInfo)
		if viper.GetString("format") == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Printf("Root:        %s\n", info.Root)
		fmt.Printf("Images:      %d\n", info.Images)
		if info.LastScan.IsZero() {
			fmt.Println("Last scan:   never")
		} else {
			fmt.Printf("Last scan:   %s\n", humanize.Time(info.LastScan))
		}
		fmt.Printf("Scan depth:  %d\n", info.ScanDepth)
		fmt.Printf("Watch depth: %d\n", info.WatchDepth)
		fmt.Printf("Watch:       %s\n", watchState(info))
		return nil
	})
}

func watchState(info service.LibraryInfo) string {
	switch {
	case info.WatchActive:
		return "active"
	case info.WatchEnabled:
		return "enabled"
	default:
		return "off"
	}
}
