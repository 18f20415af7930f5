// Package scanner provides recursive directory enumeration for the
// photodup duplicate finder. It walks a root with fastwalk, classifies
// image files by extension, and accumulates scan statistics while
// swallowing per-entry errors.
package scanner

import (
	"github.com/arenshaw/photodup/pkg/photodup/config"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// Options configures the scanner behavior.
type Options struct {
	// Root is the starting directory for the scan.
	Root string

	// MaxDepth bounds recursion below the root. Values outside
	// [config.MinScanDepth, config.MaxScanDepth] are clamped.
	MaxDepth int

	// Exclude contains name fragments; any path segment containing one
	// of these fragments is skipped, directories recursively.
	Exclude []string

	// OnFile, if set, is called for every image file discovered.
	// It must be safe to call from multiple goroutines.
	OnFile func(types.FileEntry)
}

// DefaultOptions returns options with the configured defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth: config.DefaultScanDepth,
		Exclude:  config.DefaultExclusions,
	}
}

// Validate clamps and defaults option values in place.
func (o *Options) Validate() error {
	if o.MaxDepth == 0 {
		o.MaxDepth = config.DefaultScanDepth
	}
	o.MaxDepth = config.ClampScanDepth(o.MaxDepth)
	if o.Exclude == nil {
		o.Exclude = config.DefaultExclusions
	}
	return nil
}
