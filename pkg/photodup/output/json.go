package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Source string      `json:"source"`
	Groups []jsonGroup `json:"groups"`
	Meta   jsonMeta    `json:"meta"`

	ScanStats      *types.ScanStats      `json:"scan_stats,omitempty"`
	DuplicateStats *types.DuplicateStats `json:"duplicate_stats,omitempty"`
	TrashReport    *types.TrashReport    `json:"trash_report,omitempty"`
}

// jsonGroup represents a duplicate group in JSON output.
type jsonGroup struct {
	Hash        string   `json:"hash"`
	FileSize    int64    `json:"file_size"`
	SizeHuman   string   `json:"size_human"`
	Count       int      `json:"count"`
	WastedBytes int64    `json:"wasted_bytes"`
	Files       []string `json:"files"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	TotalGroups int    `json:"total_groups"`
	WastedBytes int64  `json:"wasted_bytes"`
	WatchActive bool   `json:"watch_active"`
	Duration    string `json:"duration,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(r))
}

func buildJSONOutput(r *Result) jsonOutput {
	groups := make([]jsonGroup, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = jsonGroup{
			Hash:        g.Hash,
			FileSize:    g.FileSize,
			SizeHuman:   types.FormatSize(g.FileSize),
			Count:       g.Count(),
			WastedBytes: g.WastedBytes(),
			Files:       g.Files,
		}
	}

	return jsonOutput{
		Source: r.Source,
		Groups: groups,
		Meta: jsonMeta{
			TotalGroups: len(r.Groups),
			WastedBytes: r.WastedBytes(),
			WatchActive: r.WatchActive,
			Duration:    formatDurationString(r.Duration),
		},
		ScanStats:      r.ScanStats,
		DuplicateStats: r.DuplicateStats,
		TrashReport:    r.TrashReport,
	}
}

// formatDurationString formats a duration as a string for structured output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON, one group per
// line. This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, g := range r.Groups {
		jg := jsonGroup{
			Hash:        g.Hash,
			FileSize:    g.FileSize,
			SizeHuman:   types.FormatSize(g.FileSize),
			Count:       g.Count(),
			WastedBytes: g.WastedBytes(),
			Files:       g.Files,
		}
		data, err := json.Marshal(jg)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
