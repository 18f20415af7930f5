package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arenshaw/photodup/pkg/photodup/history"
	"github.com/arenshaw/photodup/pkg/photodup/service"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled scan and trash operations",
	Long: `List past scan and trash operations recorded in the history journal.
Use "history show <id>" for the full file listing of one entry.`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the full record of one operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prune history entries past the retention window",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to list")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.ListHistory(historyLimit)
		if !res.Success {
			return errors.New(res.Error)
		}

		entries := res.Data.([]history.Entry)
		if len(entries) == 0 {
			printInfo("No history entries")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tOP\tFILES\tSIZE\tFAILED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\n",
				e.ID,
				humanize.Time(e.Timestamp),
				e.Operation,
				e.Summary.TotalFiles,
				humanize.Bytes(uint64(e.Summary.TotalBytes)),
				e.Summary.FailedFiles,
			)
		}
		return w.Flush()
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.GetHistory(args[0])
		if !res.Success {
			return errors.New(res.Error)
		}

		entry := res.Data.(*history.Entry)
		if viper.GetString("format") == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		}

		fmt.Printf("ID:        %s\n", entry.ID)
		fmt.Printf("When:      %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("Operation: %s\n", entry.Operation)
		fmt.Printf("Root:      %s\n", entry.Root)
		fmt.Printf("Files:     %d (%s, %d failed)\n",
			entry.Summary.TotalFiles,
			humanize.Bytes(uint64(entry.Summary.TotalBytes)),
			entry.Summary.FailedFiles,
		)
		if len(entry.Files) > 0 {
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, f := range entry.Files {
				status := f.Status
				if status == "" {
					status = "scanned"
				}
				if f.Error != "" {
					fmt.Fprintf(w, "  %s\t%s\t%s\n", status, f.Path, f.Error)
				} else {
					fmt.Fprintf(w, "  %s\t%s\n", status, f.Path)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return nil
	})
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	return withService(func(svc *service.Service) error {
		res := svc.CleanupHistory()
		if !res.Success {
			return errors.New(res.Error)
		}
		printInfo("History cleaned")
		return nil
	})
}
