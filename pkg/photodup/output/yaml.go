package output

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Source string      `yaml:"source"`
	Groups []yamlGroup `yaml:"groups"`
	Meta   yamlMeta    `yaml:"meta"`

	ScanStats      *types.ScanStats      `yaml:"scan_stats,omitempty"`
	DuplicateStats *types.DuplicateStats `yaml:"duplicate_stats,omitempty"`
	TrashReport    *types.TrashReport    `yaml:"trash_report,omitempty"`
}

// yamlGroup represents a duplicate group in YAML output.
type yamlGroup struct {
	Hash        string   `yaml:"hash"`
	FileSize    int64    `yaml:"file_size"`
	SizeHuman   string   `yaml:"size_human"`
	Count       int      `yaml:"count"`
	WastedBytes int64    `yaml:"wasted_bytes"`
	Files       []string `yaml:"files"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	TotalGroups int    `yaml:"total_groups"`
	WastedBytes int64  `yaml:"wasted_bytes"`
	WatchActive bool   `yaml:"watch_active"`
	Duration    string `yaml:"duration,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	groups := make([]yamlGroup, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = yamlGroup{
			Hash:        g.Hash,
			FileSize:    g.FileSize,
			SizeHuman:   types.FormatSize(g.FileSize),
			Count:       g.Count(),
			WastedBytes: g.WastedBytes(),
			Files:       g.Files,
		}
	}

	out := yamlOutput{
		Source: r.Source,
		Groups: groups,
		Meta: yamlMeta{
			TotalGroups: len(r.Groups),
			WastedBytes: r.WastedBytes(),
			WatchActive: r.WatchActive,
			Duration:    formatDurationString(r.Duration),
		},
		ScanStats:      r.ScanStats,
		DuplicateStats: r.DuplicateStats,
		TrashReport:    r.TrashReport,
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
