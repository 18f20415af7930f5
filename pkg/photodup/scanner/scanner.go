package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/arenshaw/photodup/pkg/photodup/logging"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// Scanner enumerates files under a root using fastwalk.
//
// Scanners are explicitly constructed; create one per scan site rather
// than sharing a process-wide instance.
type Scanner struct {
	opts Options
	log  *logging.Logger

	// Atomic counters for thread-safe accumulation during the walk.
	files  atomic.Int64
	bytes  atomic.Int64
	images atomic.Int64
	dirs   atomic.Int64

	// errors collects per-entry failures without stopping the scan.
	errors   []types.ScanError
	errorsMu sync.Mutex

	// entries collects image files discovered by the last scan.
	entries   []types.FileEntry
	entriesMu sync.Mutex

	// root is the resolved absolute path being scanned.
	root string
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	_ = opts.Validate()
	return &Scanner{
		opts: opts,
		log:  logging.Get("scanner"),
	}
}

// Scan recursively walks path (or the configured root when path is empty)
// and returns aggregate statistics. Per-entry I/O failures are recorded
// and skipped; only a wholly invalid root returns an error, wrapping
// ErrInvalidDirectory.
func (s *Scanner) Scan(ctx context.Context, path string) (*types.ScanStats, error) {
	if path == "" {
		path = s.opts.Root
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := IsAccessibleDirectory(root); err != nil {
		return nil, err
	}
	s.reset(root)

	conf := fastwalk.Config{
		Follow: false, // never follow symlinks
	}

	done := make(chan struct{})
	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-walkCtx.Done()
		close(done)
	}()

	walkErr := fastwalk.Walk(&conf, root, s.walkCallback(done))
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return nil, walkErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &types.ScanStats{
		TotalFiles:  s.files.Load(),
		TotalSize:   s.bytes.Load(),
		ImageFiles:  s.images.Load(),
		Directories: s.dirs.Load(),
	}
	s.log.Info("scan complete",
		"root", root,
		"files", stats.TotalFiles,
		"images", stats.ImageFiles,
		"dirs", stats.Directories,
		"errors", len(s.errors))
	return stats, nil
}

// Entries returns the image files discovered by the last Scan, in no
// particular order.
func (s *Scanner) Entries() []types.FileEntry {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	out := make([]types.FileEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Errors returns the per-entry failures collected by the last Scan.
func (s *Scanner) Errors() []types.ScanError {
	s.errorsMu.Lock()
	defer s.errorsMu.Unlock()
	out := make([]types.ScanError, len(s.errors))
	copy(out, s.errors)
	return out
}

// ListDirectory returns a non-recursive listing of the files directly in
// path, sorted by name and annotated with image classification.
// Directories and dot-prefixed entries are omitted.
func (s *Scanner) ListDirectory(path string) ([]types.FileInfo, error) {
	if err := IsAccessibleDirectory(path); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(path) // sorted by name
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", path, err)
	}

	infos := make([]types.FileInfo, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.addError(filepath.Join(path, entry.Name()), err)
			continue
		}
		infos = append(infos, types.FileInfo{
			Path:    filepath.Join(path, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
			IsImage: types.IsImagePath(entry.Name()),
		})
	}

	return infos, nil
}

// reset clears accumulated state before a new scan.
func (s *Scanner) reset(root string) {
	s.root = root
	s.files.Store(0)
	s.bytes.Store(0)
	s.images.Store(0)
	s.dirs.Store(0)

	s.errorsMu.Lock()
	s.errors = nil
	s.errorsMu.Unlock()

	s.entriesMu.Lock()
	s.entries = nil
	s.entriesMu.Unlock()
}

// walkCallback returns the callback function for fastwalk.Walk.
func (s *Scanner) walkCallback(done <-chan struct{}) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-done:
			return fastwalk.ErrSkipFiles
		default:
		}

		// Per-entry errors are recorded and skipped, never fatal.
		if err != nil {
			s.addError(path, err)
			return nil
		}

		if path != s.root && s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == s.root {
				return nil
			}
			// MaxDepth counts directory levels entered below the root.
			if s.depthOf(path) > s.opts.MaxDepth {
				return fastwalk.SkipDir
			}
			s.dirs.Add(1)
			return nil
		}

		if d.Type().IsRegular() {
			s.processFile(path, d)
		}
		return nil
	}
}

// processFile accumulates stats for a regular file.
func (s *Scanner) processFile(path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		s.addError(path, err)
		return
	}

	s.files.Add(1)
	s.bytes.Add(info.Size())

	if !types.IsImagePath(path) {
		return
	}
	s.images.Add(1)

	entry := types.FileEntry{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsImage: true,
	}

	s.entriesMu.Lock()
	s.entries = append(s.entries, entry)
	s.entriesMu.Unlock()

	if s.opts.OnFile != nil {
		s.opts.OnFile(entry)
	}
}

// depthOf returns the depth of path below the scan root; direct children
// are depth 1.
func (s *Scanner) depthOf(path string) int {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// isExcluded checks the path's base name against the exclusion fragments.
// Dot-prefixed names are always excluded.
func (s *Scanner) isExcluded(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, fragment := range s.opts.Exclude {
		if fragment != "" && strings.Contains(base, fragment) {
			return true
		}
	}
	return false
}

// addError records a per-entry error thread-safely.
func (s *Scanner) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.ScanError{
		Path:  path,
		Error: err.Error(),
	})
	s.errorsMu.Unlock()
}
