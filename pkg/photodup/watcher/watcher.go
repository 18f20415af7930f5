// Package watcher provides filesystem watching for incremental library
// updates. Events are delivered over per-subscriber channels rather than
// listener callbacks, so backpressure and shutdown are explicit.
//
// Watching is bounded to a shallow depth: it exists for responsiveness to
// changes near the root, not exhaustive indexing. Full scans remain the
// source of truth for deep trees.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/arenshaw/photodup/pkg/photodup/config"
	"github.com/arenshaw/photodup/pkg/photodup/logging"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// EventType classifies a filesystem event.
type EventType int

const (
	FileAdded EventType = iota
	FileRemoved
	FileChanged
	DirAdded
	DirRemoved
	WatcherError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case FileAdded:
		return "file_added"
	case FileRemoved:
		return "file_removed"
	case FileChanged:
		return "file_changed"
	case DirAdded:
		return "dir_added"
	case DirRemoved:
		return "dir_removed"
	case WatcherError:
		return "watcher_error"
	default:
		return "unknown"
	}
}

// Event is a single filesystem notification. File events are emitted for
// image files only; Size is zero for removals.
type Event struct {
	Type EventType
	Path string
	Size int64
	Err  string // set for WatcherError events
}

// Subscriber receives events over a buffered channel. When the channel is
// full events are dropped rather than blocking the watch loop.
type Subscriber struct {
	ID     string
	Events chan Event
}

// Options configures a Watcher.
type Options struct {
	// Root is the directory to watch.
	Root string

	// Depth bounds how many directory levels below the root receive
	// watches. Zero uses config.DefaultWatchDepth.
	Depth int

	// Exclude contains name fragments to skip, as in the scanner.
	Exclude []string
}

// Watcher watches a root directory tree and fans typed events out to
// subscribers.
type Watcher struct {
	opts    Options
	fsw     *fsnotify.Watcher
	log     *logging.Logger
	root    string
	paths   map[string]bool
	subs    map[string]*Subscriber
	mu      sync.RWMutex
	closed  bool
	running bool
}

// New creates a Watcher for the given root. The watch does not start
// until Start is called.
func New(opts Options) (*Watcher, error) {
	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	if opts.Depth <= 0 {
		opts.Depth = config.DefaultWatchDepth
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		opts:  opts,
		fsw:   fsw,
		log:   logging.Get("watcher"),
		root:  absRoot,
		paths: make(map[string]bool),
		subs:  make(map[string]*Subscriber),
	}, nil
}

// Start adds watches for the root and its subdirectories down to the
// configured depth, then runs the event loop until ctx is cancelled or
// Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Lstat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil // only directories are watched
	}

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil // never follow symlinks
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.isIgnored(path) {
			return filepath.SkipDir
		}
		if w.depthOf(path) > w.opts.Depth {
			return filepath.SkipDir
		}
		if err := w.addWatch(path); err != nil {
			if path == w.root {
				return err
			}
			// One unwatchable subdirectory should not take down the
			// whole watch. addWatch already logged the failure.
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Running reports whether the event loop is active.
func (w *Watcher) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running && !w.closed
}

// Subscribe registers a new subscriber with the given channel buffer.
func (w *Watcher) Subscribe(buffer int) *Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if buffer <= 0 {
		buffer = 100
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, buffer),
	}
	w.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if sub, ok := w.subs[id]; ok {
		close(sub.Events)
		delete(w.subs, id)
	}
}

// Close stops the watcher and closes all subscriber channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.running = false

	for id, sub := range w.subs {
		close(sub.Events)
		delete(w.subs, id)
	}
	w.paths = make(map[string]bool)
	return w.fsw.Close()
}

// run is the event loop.
func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
			w.notify(Event{Type: WatcherError, Err: err.Error()})
		}
	}
}

// handleEvent translates one fsnotify event into typed notifications.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.isIgnored(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(path)
	case event.Op&fsnotify.Write != 0:
		w.handleWrite(path)
	case event.Op&fsnotify.Remove != 0:
		w.handleRemove(path)
	case event.Op&fsnotify.Rename != 0:
		// A rename is a removal here; the new name arrives as a create.
		w.handleRemove(path)
	}
}

// handleCreate handles file/directory creation.
func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return // already gone
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return
	}

	if info.IsDir() {
		if w.depthOf(path) <= w.opts.Depth {
			_ = w.addWatch(path)
			// Directories created with children in place need their
			// subdirectories watched as well.
			_ = filepath.WalkDir(path, func(sub string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return nil //nolint:nilerr
				}
				if d.IsDir() && sub != path && !w.isIgnored(sub) && w.depthOf(sub) <= w.opts.Depth {
					_ = w.addWatch(sub)
				}
				return nil
			})
		}
		w.notify(Event{Type: DirAdded, Path: path})
		return
	}

	if !types.IsImagePath(path) {
		return
	}
	w.notify(Event{Type: FileAdded, Path: path, Size: info.Size()})
}

// handleWrite handles file modification.
func (w *Watcher) handleWrite(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if !types.IsImagePath(path) {
		return
	}
	w.notify(Event{Type: FileChanged, Path: path, Size: info.Size()})
}

// handleRemove handles file/directory deletion.
func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	wasDir := w.paths[path]
	if wasDir {
		_ = w.fsw.Remove(path)
		delete(w.paths, path)
	}
	// Drop watches on any children of a removed directory.
	for child := range w.paths {
		if isSubPath(child, path) {
			_ = w.fsw.Remove(child)
			delete(w.paths, child)
		}
	}
	w.mu.Unlock()

	if wasDir {
		w.notify(Event{Type: DirRemoved, Path: path})
		return
	}
	if !types.IsImagePath(path) {
		return
	}
	w.notify(Event{Type: FileRemoved, Path: path})
}

// notify fans an event out to every subscriber, dropping when full.
func (w *Watcher) notify(ev Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}
	for _, sub := range w.subs {
		select {
		case sub.Events <- ev:
		default:
			// Subscriber is not keeping up; dropping beats stalling
			// the watch loop.
		}
	}
}

// addWatch registers a single directory with fsnotify.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		w.log.Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// depthOf returns the directory depth of path below the watch root.
func (w *Watcher) depthOf(path string) int {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// isIgnored checks exclusion fragments and the dot-prefix rule.
func (w *Watcher) isIgnored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, fragment := range w.opts.Exclude {
		if fragment != "" && strings.Contains(base, fragment) {
			return true
		}
	}
	return false
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
