package service

import (
	"context"

	"github.com/arenshaw/photodup/pkg/photodup/scanner"
	"github.com/arenshaw/photodup/pkg/photodup/watcher"
)

// StartWatch begins watching the managed root for image changes. Events
// update the catalog and duplicate groups incrementally; a watch event
// never triggers a full rescan.
func (s *Service) StartWatch(ctx context.Context) Result {
	root, err := s.root()
	if err != nil {
		return Fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watch != nil {
		return OK(s.statusLocked())
	}

	depth, err := s.watchDepth()
	if err != nil {
		return Fail(err)
	}
	exclude, err := s.exclusions()
	if err != nil {
		return Fail(err)
	}

	w, err := watcher.New(watcher.Options{Root: root, Depth: depth, Exclude: exclude})
	if err != nil {
		return Fail(err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	if err := w.Start(watchCtx); err != nil {
		cancel()
		w.Close()
		return Fail(err)
	}

	sub := w.Subscribe(256)
	done := make(chan struct{})
	go s.consumeEvents(watchCtx, sub, done)

	s.watch = w
	s.watchCancel = cancel
	s.watchDone = done

	if err := s.prefs.SetWatchEnabled(true); err != nil {
		s.log.Warn("failed to persist watch flag", "error", err)
	}
	s.log.Info("watch started", "root", root, "depth", depth)
	return OK(s.statusLocked())
}

// StopWatch stops the active watch, if any.
func (s *Service) StopWatch() Result {
	s.stopWatch()
	if err := s.prefs.SetWatchEnabled(false); err != nil {
		return Fail(err)
	}
	return OK(WatchStatus{Active: false})
}

// Status reports whether a watch is active and on what.
func (s *Service) Status() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OK(s.statusLocked())
}

func (s *Service) statusLocked() WatchStatus {
	if s.watch == nil || !s.watch.Running() {
		return WatchStatus{Active: false}
	}
	root, _ := s.root()
	depth, _ := s.watchDepth()
	return WatchStatus{Active: true, Root: root, Depth: depth}
}

func (s *Service) watchActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watch != nil && s.watch.Running()
}

func (s *Service) stopWatch() {
	s.mu.Lock()
	w, cancel, done := s.watch, s.watchCancel, s.watchDone
	s.watch, s.watchCancel, s.watchDone = nil, nil, nil
	s.mu.Unlock()

	if w == nil {
		return
	}
	cancel()
	w.Close()
	<-done
	s.log.Info("watch stopped")
}

// consumeEvents applies watcher events to the catalog until the
// subscription channel closes.
func (s *Service) consumeEvents(ctx context.Context, sub *watcher.Subscriber, done chan<- struct{}) {
	defer close(done)

	for ev := range sub.Events {
		switch ev.Type {
		case watcher.FileAdded, watcher.FileChanged:
			if err := s.grouper.UpsertFile(ctx, ev.Path); err != nil {
				s.log.Warn("failed to index changed file", "path", ev.Path, "error", err)
			}
		case watcher.FileRemoved:
			if err := s.grouper.RemoveFile(ctx, ev.Path); err != nil {
				s.log.Warn("failed to drop removed file", "path", ev.Path, "error", err)
			}
		case watcher.DirAdded:
			// A directory moved into the root arrives with its files
			// already in place; no create events will follow for them.
			s.indexTree(ctx, ev.Path)
		case watcher.DirRemoved:
			s.removeTree(ctx, ev.Path)
		case watcher.WatcherError:
			s.log.Warn("watcher error", "error", ev.Err)
		}
	}
}

// indexTree catalogs the images already present under a directory that
// appeared whole, honoring the usual depth and exclusion settings.
func (s *Service) indexTree(ctx context.Context, dir string) {
	opts, err := s.scanOptions(dir)
	if err != nil {
		s.log.Warn("failed to build scan options for new directory", "path", dir, "error", err)
		return
	}

	sc := scanner.New(opts)
	if _, err := sc.Scan(ctx, dir); err != nil {
		s.log.Warn("failed to scan new directory", "path", dir, "error", err)
		return
	}

	indexed := 0
	for _, entry := range sc.Entries() {
		if err := s.grouper.UpsertFile(ctx, entry.Path); err != nil {
			s.log.Warn("failed to index file in new directory", "path", entry.Path, "error", err)
			continue
		}
		indexed++
	}
	s.log.Info("new directory indexed", "path", dir, "images", indexed)
}

// removeTree drops every tracked image under a removed directory,
// repairing each affected group.
func (s *Service) removeTree(ctx context.Context, prefix string) {
	images, err := s.store.ListImagesByPrefix(ctx, prefix)
	if err != nil {
		s.log.Warn("failed to list images under removed directory", "path", prefix, "error", err)
		return
	}
	for _, img := range images {
		if err := s.grouper.RemoveFile(ctx, img.Path); err != nil {
			s.log.Warn("failed to drop removed file", "path", img.Path, "error", err)
		}
	}
	s.log.Info("directory removed from catalog", "path", prefix, "images", len(images))
}
