// Package config provides configuration management for photodup.
package config

// Default configuration values for photodup.
const (
	// DefaultScanDepth is the maximum recursion depth for full scans.
	DefaultScanDepth = 10

	// MinScanDepth and MaxScanDepth bound the configurable scan depth.
	MinScanDepth = 1
	MaxScanDepth = 20

	// DefaultWatchDepth is the recursion depth for the filesystem watcher.
	// Watching is for responsiveness, not exhaustive indexing, so it is
	// deliberately shallower than the scan depth.
	DefaultWatchDepth = 3

	// DefaultRetentionDays is the default number of days to retain
	// operation history entries.
	DefaultRetentionDays = 30
)

// DefaultExclusions contains directory name fragments skipped during
// scanning and watching.
var DefaultExclusions = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	".Trash",
	".DS_Store",
	"Thumbs.db",
	"#recycle",
	"@eaDir",
}

// ClampScanDepth clamps a configured depth into the supported range.
func ClampScanDepth(depth int) int {
	if depth < MinScanDepth {
		return MinScanDepth
	}
	if depth > MaxScanDepth {
		return MaxScanDepth
	}
	return depth
}
