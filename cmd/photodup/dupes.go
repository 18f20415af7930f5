package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arenshaw/photodup/pkg/photodup/output"
	"github.com/arenshaw/photodup/pkg/photodup/service"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Find duplicate images in the library",
	Long: `Scan the library and detect exact duplicates in two phases: a cheap
size-and-sample hash narrows candidates, then a full content hash
confirms them. Confirmed groups are persisted for later trash
operations.`,
	RunE: runDupes,
}

var dupesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show previously found duplicate groups",
	Long:  `List the persisted duplicate groups without rescanning the library.`,
	RunE:  runDupesList,
}

var dupesRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-derive duplicate groups from the catalog",
	Long: `Rebuild the persisted duplicate groups from the catalog alone, without
rescanning or rehashing any files.`,
	RunE: runDupesRebuild,
}

var dupesProgress bool

func init() {
	dupesCmd.Flags().BoolVarP(&dupesProgress, "progress", "p", false, "show hashing progress")
	dupesCmd.AddCommand(dupesListCmd)
	dupesCmd.AddCommand(dupesRebuildCmd)
	rootCmd.AddCommand(dupesCmd)
}

func runDupes(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		var onProgress func(types.Progress)
		if dupesProgress && !getQuiet() {
			onProgress = func(p types.Progress) {
				fmt.Fprintf(os.Stderr, "\rhashing %d/%d", p.Completed, p.Total)
				if p.Completed == p.Total {
					fmt.Fprintln(os.Stderr)
				}
			}
		}

		start := time.Now()
		res := svc.FindDuplicates(cmd.Context(), onProgress)
		return render(res, func() *output.Result {
			root, _ := svc.GetRoot().Data.(string)
			out := &output.Result{
				Source:   root,
				Groups:   res.Data.([]types.DuplicateSet),
				Duration: time.Since(start),
			}
			if stats := svc.Stats(cmd.Context()); stats.Success {
				s := stats.Data.(types.DuplicateStats)
				out.DuplicateStats = &s
			}
			return out
		})
	})
}

func runDupesRebuild(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.RebuildGroups(cmd.Context())
		return render(res, func() *output.Result {
			root, _ := svc.GetRoot().Data.(string)
			return &output.Result{
				Source: root,
				Groups: res.Data.([]types.DuplicateSet),
			}
		})
	})
}

func runDupesList(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.Duplicates(cmd.Context())
		return render(res, func() *output.Result {
			root, _ := svc.GetRoot().Data.(string)
			return &output.Result{
				Source: root,
				Groups: res.Data.([]types.DuplicateSet),
			}
		})
	})
}
