// Package output provides formatters for displaying scan results,
// duplicate groups, and trash reports in various output formats
// (pretty, plain, json, yaml).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// Result contains the complete output data for formatting. Sections left
// at their zero value are omitted by the formatters.
type Result struct {
	// Source is the root path the data describes.
	Source string `json:"source" yaml:"source"`

	// Groups contains duplicate groups, largest first.
	Groups []types.DuplicateSet `json:"groups,omitempty" yaml:"groups,omitempty"`

	// ScanStats describes a completed scan, if one ran.
	ScanStats *types.ScanStats `json:"scan_stats,omitempty" yaml:"scan_stats,omitempty"`

	// DuplicateStats aggregates the persisted groups.
	DuplicateStats *types.DuplicateStats `json:"duplicate_stats,omitempty" yaml:"duplicate_stats,omitempty"`

	// TrashReport describes a batch trash operation, if one ran.
	TrashReport *types.TrashReport `json:"trash_report,omitempty" yaml:"trash_report,omitempty"`

	// WatchActive indicates if file watching is active on the source.
	WatchActive bool `json:"watch_active" yaml:"watch_active"`

	// Duration is the time the producing operation took.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// WastedBytes returns the total recoverable bytes across all groups.
func (r *Result) WastedBytes() int64 {
	var total int64
	for _, g := range r.Groups {
		total += g.WastedBytes()
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// shortHash abbreviates a content hash for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
