package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// PlainFormatter formats output as simple tab-separated text.
// It produces plain output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.ScanStats != nil {
		fmt.Fprintf(w, "scanned %d files (%d images) in %d directories, %s total\n",
			r.ScanStats.TotalFiles, r.ScanStats.ImageFiles, r.ScanStats.Directories,
			types.FormatSize(r.ScanStats.TotalSize))
	}

	if len(r.Groups) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		if _, err := tw.Write([]byte("HASH\tSIZE\tCOPIES\tPATH\n")); err != nil {
			return err
		}
		for _, g := range r.Groups {
			for _, path := range g.Files {
				row := shortHash(g.Hash) + "\t" + types.FormatSize(g.FileSize) +
					"\t" + fmt.Sprintf("%d", g.Count()) + "\t" + path + "\n"
				if _, err := tw.Write([]byte(row)); err != nil {
					return err
				}
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if r.DuplicateStats != nil {
		s := r.DuplicateStats
		fmt.Fprintf(w, "%d groups, %d redundant copies, largest group %d, %s recoverable\n",
			s.TotalGroups, s.TotalDuplicates, s.LargestGroup,
			types.FormatSize(s.PotentialSpaceSaved))
	}

	if r.TrashReport != nil {
		fmt.Fprintf(w, "trashed %d of %d files\n",
			len(r.TrashReport.Successful), r.TrashReport.TotalProcessed)
		for _, f := range r.TrashReport.Failed {
			fmt.Fprintf(w, "failed: %s: %s\n", f.Path, f.Error)
		}
	}

	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
