package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arenshaw/photodup/pkg/photodup/output"
	"github.com/arenshaw/photodup/pkg/photodup/service"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Move files to the system trash",
	Long: `Move files to the system trash rather than deleting them outright.
Trashed files can be restored from the trash until it is emptied.`,
}

var trashFilesCmd = &cobra.Command{
	Use:   "files <path>...",
	Short: "Trash the given files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrashFiles,
}

var trashGroupCmd = &cobra.Command{
	Use:   "group <hash>",
	Short: "Trash all but one member of a duplicate group",
	Long: `Trash every member of the duplicate group identified by hash except
the one selected with --keep. Members are numbered in path order,
starting at 0, as shown by "photodup dupes list".`,
	Args: cobra.ExactArgs(1),
	RunE: runTrashGroup,
}

var (
	trashKeep int
	trashYes  bool
)

func init() {
	trashGroupCmd.Flags().IntVarP(&trashKeep, "keep", "k", 0, "index of the group member to keep")
	trashCmd.PersistentFlags().BoolVarP(&trashYes, "yes", "y", false, "skip the confirmation prompt")
	trashCmd.AddCommand(trashFilesCmd)
	trashCmd.AddCommand(trashGroupCmd)
	rootCmd.AddCommand(trashCmd)
}

func runTrashFiles(cmd *cobra.Command, args []string) error {
	if !trashYes && !confirm(fmt.Sprintf("Move %d file(s) to the trash?", len(args))) {
		printInfo("Aborted")
		return nil
	}

	return withService(func(svc *service.Service) error {
		res := svc.TrashFiles(cmd.Context(), args, nil)
		return render(res, func() *output.Result {
			report := res.Data.(types.TrashReport)
			return &output.Result{TrashReport: &report}
		})
	})
}

func runTrashGroup(cmd *cobra.Command, args []string) error {
	if !trashYes && !confirm(fmt.Sprintf("Trash every copy in group %s except member %d?", args[0], trashKeep)) {
		printInfo("Aborted")
		return nil
	}

	return withService(func(svc *service.Service) error {
		res := svc.TrashDuplicateGroup(cmd.Context(), args[0], trashKeep, nil)
		return render(res, func() *output.Result {
			report := res.Data.(types.TrashReport)
			return &output.Result{TrashReport: &report}
		})
	})
}

// confirm prompts on stderr and reads a y/n answer from stdin.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
