package main

import (
	"github.com/spf13/cobra"

	"github.com/arenshaw/photodup/pkg/photodup/output"
	"github.com/arenshaw/photodup/pkg/photodup/service"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the persisted duplicate catalog",
	Long: `Report how many duplicate groups are known, how many redundant
copies they contain, and how much space trashing them would recover.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.Stats(cmd.Context())
		return render(res, func() *output.Result {
			stats := res.Data.(types.DuplicateStats)
			root, _ := svc.GetRoot().Data.(string)
			return &output.Result{
				Source:         root,
				DuplicateStats: &stats,
			}
		})
	})
}
