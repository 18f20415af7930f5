package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/arenshaw/photodup/pkg/photodup/output"
	"github.com/arenshaw/photodup/pkg/photodup/service"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan the library for image files",
	Long: `Enumerate image files under the library root (or a subdirectory of
it), recording file counts and sizes. Unreadable entries are skipped
and reported, never fatal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	return withService(func(svc *service.Service) error {
		start := time.Now()
		res := svc.ScanDirectory(cmd.Context(), path)
		return render(res, func() *output.Result {
			stats := res.Data.(*types.ScanStats)
			root, _ := svc.GetRoot().Data.(string)
			return &output.Result{
				Source:    root,
				ScanStats: stats,
				Duration:  time.Since(start),
			}
		})
	})
}
