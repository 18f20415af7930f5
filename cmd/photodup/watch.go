package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arenshaw/photodup/pkg/photodup/service"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the library and keep the duplicate catalog current",
	Long: `Watch the library root for file changes and update the duplicate
catalog as images are added, modified, or removed. Runs in the
foreground until interrupted.`,
	RunE: runWatch,
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured watch state",
	RunE:  runWatchStatus,
}

func init() {
	watchCmd.AddCommand(watchStatusCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.StartWatch(cmd.Context())
		if !res.Success {
			return errors.New(res.Error)
		}

		status := res.Data.(service.WatchStatus)
		printInfo("watching %s (depth %d), press Ctrl-C to stop", status.Root, status.Depth)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-sig:
		case <-cmd.Context().Done():
		}

		svc.StopWatch()
		printInfo("Watch stopped")
		return nil
	})
}

func runWatchStatus(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.Status()
		if !res.Success {
			return errors.New(res.Error)
		}

		status := res.Data.(service.WatchStatus)
		if status.Active {
			fmt.Printf("watch active on %s (depth %d)\n", status.Root, status.Depth)
		} else {
			fmt.Println("watch inactive")
		}
		return nil
	})
}
