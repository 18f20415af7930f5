package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arenshaw/photodup/pkg/photodup/service"
)

var rootDirCmd = &cobra.Command{
	Use:   "root",
	Short: "Manage the photo library root directory",
	Long: `Show or change the directory photodup manages. All scans, watches,
and trash operations are confined to this directory.`,
	RunE: runRootGet,
}

var rootSetCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Set the library root directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRootSet,
}

var rootExcludeCmd = &cobra.Command{
	Use:   "exclude <fragment>...",
	Short: "Set directory name fragments to skip",
	Long: `Store name fragments to skip during scans and watches, replacing any
previously stored set. Directories whose name contains a fragment are
never entered.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRootExclude,
}

var rootGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the library root directory",
	RunE:  runRootGet,
}

var rootClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the library root directory",
	RunE:  runRootClear,
}

var (
	rootScanDepth  int
	rootWatchDepth int
)

func init() {
	rootSetCmd.Flags().IntVar(&rootScanDepth, "scan-depth", 0, "directory depth scans descend to")
	rootSetCmd.Flags().IntVar(&rootWatchDepth, "watch-depth", 0, "directory depth watches cover")
	rootDirCmd.AddCommand(rootSetCmd)
	rootDirCmd.AddCommand(rootGetCmd)
	rootDirCmd.AddCommand(rootClearCmd)
	rootDirCmd.AddCommand(rootExcludeCmd)
	rootCmd.AddCommand(rootDirCmd)
}

func runRootSet(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.SetRoot(cmd.Context(), args[0])
		if !res.Success {
			return errors.New(res.Error)
		}
		printInfo("Library root set to %s", res.Data)

		if cmd.Flags().Changed("scan-depth") {
			res := svc.SetScanDepth(rootScanDepth)
			if !res.Success {
				return errors.New(res.Error)
			}
			printInfo("Scan depth set to %d", res.Data)
		}
		if cmd.Flags().Changed("watch-depth") {
			res := svc.SetWatchDepth(rootWatchDepth)
			if !res.Success {
				return errors.New(res.Error)
			}
			printInfo("Watch depth set to %d", res.Data)
		}
		return nil
	})
}

func runRootExclude(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.SetExclusions(args)
		if !res.Success {
			return errors.New(res.Error)
		}
		printInfo("Excluding directories matching: %s", strings.Join(args, ", "))
		return nil
	})
}

func runRootGet(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.GetRoot()
		if !res.Success {
			return errors.New(res.Error)
		}
		fmt.Println(res.Data)
		return nil
	})
}

func runRootClear(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.ClearRoot()
		if !res.Success {
			return errors.New(res.Error)
		}
		printInfo("Library root cleared")
		return nil
	})
}
