package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.TrashReport != nil {
		w.WriteString(f.formatTrashReport(r.TrashReport))
		return nil
	}

	w.WriteString(f.formatGroups(r))
	w.WriteString(f.formatFooter(r))
	return nil
}

// formatHeader builds the header box with source and status.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	sourceLabel := LabelStyle.Render("Library:")
	sourceValue := ValueStyle.Render(r.Source)
	lines = append(lines, fmt.Sprintf("%s %s", sourceLabel, sourceValue))

	var infoParts []string
	if r.ScanStats != nil {
		scannedLabel := LabelStyle.Render("Scanned:")
		scannedValue := ValueStyle.Render(fmt.Sprintf("%d files (%d images), %s",
			r.ScanStats.TotalFiles, r.ScanStats.ImageFiles,
			types.FormatSize(r.ScanStats.TotalSize)))
		infoParts = append(infoParts, fmt.Sprintf("%s %s", scannedLabel, scannedValue))
	}
	if r.Duration > 0 {
		infoParts = append(infoParts, LabelStyle.Render("Took:")+" "+MutedStyle.Render(r.Duration.String()))
	}
	infoParts = append(infoParts, f.formatWatchStatus(r.WatchActive))
	lines = append(lines, strings.Join(infoParts, "  "))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatWatchStatus returns a styled string indicating watch status.
func (f *PrettyFormatter) formatWatchStatus(active bool) string {
	if active {
		return SuccessStyle.Render("watch: on")
	}
	return MutedStyle.Render("watch: off")
}

// formatGroups builds one block per duplicate group.
func (f *PrettyFormatter) formatGroups(r *Result) string {
	if len(r.Groups) == 0 {
		return MutedStyle.Render("  No duplicates found\n")
	}

	var sb strings.Builder
	for i, g := range r.Groups {
		title := TitleStyle.Render(fmt.Sprintf("Group %d", i+1))
		hash := HashStyle.Render(shortHash(g.Hash))
		size := SizeStyle.Render(types.FormatSize(g.FileSize))
		wasted := MutedStyle.Render(fmt.Sprintf("(%s wasted)", types.FormatSize(g.WastedBytes())))
		sb.WriteString(fmt.Sprintf("%s  %s  %s x%d %s\n", title, hash, size, g.Count(), wasted))

		for _, path := range g.Files {
			sb.WriteString("    " + PathStyle.Render(path) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatFooter builds the summary footer box.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	if r.DuplicateStats != nil {
		s := r.DuplicateStats
		parts = append(parts,
			LabelStyle.Render("Groups:")+" "+ValueStyle.Render(fmt.Sprintf("%d", s.TotalGroups)),
			LabelStyle.Render("Copies:")+" "+ValueStyle.Render(fmt.Sprintf("%d", s.TotalDuplicates)),
			LabelStyle.Render("Recoverable:")+" "+SizeStyle.Render(types.FormatSize(s.PotentialSpaceSaved)))
	} else {
		parts = append(parts,
			LabelStyle.Render("Groups:")+" "+ValueStyle.Render(fmt.Sprintf("%d", len(r.Groups))),
			LabelStyle.Render("Recoverable:")+" "+SizeStyle.Render(types.FormatSize(r.WastedBytes())))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatTrashReport builds the outcome summary for a trash batch.
func (f *PrettyFormatter) formatTrashReport(report *types.TrashReport) string {
	var sb strings.Builder

	ok := SuccessStyle.Render(fmt.Sprintf("%d trashed", len(report.Successful)))
	sb.WriteString(fmt.Sprintf("  %s of %d\n", ok, report.TotalProcessed))

	for _, path := range report.Successful {
		sb.WriteString("    " + PathStyle.Render(path) + "\n")
	}
	if len(report.Failed) > 0 {
		sb.WriteString("  " + ErrorStyle.Render(fmt.Sprintf("%d failed", len(report.Failed))) + "\n")
		for _, fail := range report.Failed {
			sb.WriteString("    " + PathStyle.Render(fail.Path) + " " + MutedStyle.Render(fail.Error) + "\n")
		}
	}
	return sb.String()
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
