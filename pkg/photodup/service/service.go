// Package service is the orchestration facade over the scanner, hasher,
// duplicate grouper, trash, watcher, and stores. Every dependency is
// injected at construction; callers get plain Result envelopes suitable
// for serialization across any transport.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/arenshaw/photodup/pkg/photodup/config"
	"github.com/arenshaw/photodup/pkg/photodup/dedup"
	"github.com/arenshaw/photodup/pkg/photodup/hasher"
	"github.com/arenshaw/photodup/pkg/photodup/history"
	"github.com/arenshaw/photodup/pkg/photodup/logging"
	"github.com/arenshaw/photodup/pkg/photodup/prefs"
	"github.com/arenshaw/photodup/pkg/photodup/scanner"
	"github.com/arenshaw/photodup/pkg/photodup/store"
	"github.com/arenshaw/photodup/pkg/photodup/trash"
	"github.com/arenshaw/photodup/pkg/photodup/types"
	"github.com/arenshaw/photodup/pkg/photodup/watcher"
)

// Sentinel errors surfaced in Result envelopes.
var (
	// ErrNoRoot means no managed root directory has been configured yet.
	ErrNoRoot = errors.New("no root directory configured")

	// ErrAccessDenied means the requested path lies outside the managed
	// root.
	ErrAccessDenied = errors.New("access denied: path outside managed root")

	// ErrScanInProgress means another scan holds the scan token.
	ErrScanInProgress = errors.New("a scan is already in progress")
)

// Result is the envelope every service operation returns. Data carries
// the operation's typed payload when Success is true.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps a payload in a successful Result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail wraps an error in a failed Result.
func Fail(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// WatchStatus describes the watcher state.
type WatchStatus struct {
	Active bool   `json:"active"`
	Root   string `json:"root,omitempty"`
	Depth  int    `json:"depth,omitempty"`
}

// LibraryInfo summarizes the managed library: where it lives, how much
// of it is cataloged, and the effective scan and watch settings.
type LibraryInfo struct {
	Root         string    `json:"root"`
	Images       int64     `json:"images"`
	LastScan     time.Time `json:"last_scan,omitempty"`
	ScanDepth    int       `json:"scan_depth"`
	WatchDepth   int       `json:"watch_depth"`
	WatchEnabled bool      `json:"watch_enabled"`
	WatchActive  bool      `json:"watch_active"`
}

// Service owns the duplicate-finder subsystems for one library.
type Service struct {
	cfg     *config.Config
	store   *store.Store
	prefs   *prefs.Store
	hasher  *hasher.Hasher
	grouper *dedup.Grouper
	trasher *trash.Trasher
	history *history.History // nil when history is disabled
	log     *logging.Logger

	// scanMu is the scan token: at most one scan or rebuild at a time.
	scanMu sync.Mutex

	mu          sync.Mutex
	watch       *watcher.Watcher
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New wires a Service from its dependencies. hist may be nil to disable
// operation journaling.
func New(cfg *config.Config, st *store.Store, pf *prefs.Store, hist *history.History) *Service {
	h := hasher.New()
	return &Service{
		cfg:     cfg,
		store:   st,
		prefs:   pf,
		hasher:  h,
		grouper: dedup.New(st, h),
		trasher: trash.New(),
		history: hist,
		log:     logging.Get("service"),
	}
}

// Close stops the watcher. The stores are owned by the caller.
func (s *Service) Close() error {
	s.stopWatch()
	return nil
}

// SetRoot validates and persists the managed root directory. This is the
// bootstrap operation: it must succeed when no root was ever configured.
// An active watch is restarted on the new root.
func (s *Service) SetRoot(ctx context.Context, path string) Result {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fail(err)
	}
	if err := scanner.IsAccessibleDirectory(abs); err != nil {
		return Fail(err)
	}
	if err := s.prefs.SetRootPath(abs); err != nil {
		return Fail(err)
	}
	s.log.Info("root directory set", "path", abs)

	if s.watchActive() {
		s.stopWatch()
		if res := s.StartWatch(ctx); !res.Success {
			return res
		}
	}
	return OK(abs)
}

// GetRoot returns the managed root directory.
func (s *Service) GetRoot() Result {
	root, err := s.root()
	if err != nil {
		return Fail(err)
	}
	return OK(root)
}

// ClearRoot removes the managed root and stops any active watch.
func (s *Service) ClearRoot() Result {
	s.stopWatch()
	if err := s.prefs.ClearRootPath(); err != nil {
		return Fail(err)
	}
	s.log.Info("root directory cleared")
	return OK(nil)
}

// root loads the configured root, mapping the bootstrap state to ErrNoRoot.
func (s *Service) root() (string, error) {
	root, err := s.prefs.RootPath()
	if errors.Is(err, prefs.ErrNotSet) {
		return "", ErrNoRoot
	}
	return root, err
}

// guard resolves path against the managed root. An empty path means the
// root itself. Paths outside the root are rejected with ErrAccessDenied.
func (s *Service) guard(path string) (string, error) {
	root, err := s.root()
	if err != nil {
		return "", err
	}
	if path == "" {
		return root, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if !scanner.IsWithin(abs, root) {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, abs)
	}
	return abs, nil
}

// scanOptions builds scanner options from the resolved depth and
// exclusion settings.
func (s *Service) scanOptions(root string) (scanner.Options, error) {
	depth, err := s.scanDepth()
	if err != nil {
		return scanner.Options{}, err
	}
	exclude, err := s.exclusions()
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{Root: root, MaxDepth: depth, Exclude: exclude}, nil
}

// scanDepth resolves the effective scan depth: the per-library preference
// when one was stored, then the configuration, then the default.
func (s *Service) scanDepth() (int, error) {
	depth, err := s.prefs.ScanDepth()
	if err == nil {
		return depth, nil
	}
	if !errors.Is(err, prefs.ErrNotSet) {
		return 0, err
	}
	if s.cfg.ScanDepth > 0 {
		return config.ClampScanDepth(s.cfg.ScanDepth), nil
	}
	return config.DefaultScanDepth, nil
}

// watchDepth resolves the effective watch depth the same way scanDepth
// does.
func (s *Service) watchDepth() (int, error) {
	depth, err := s.prefs.WatchDepth()
	if err == nil {
		return depth, nil
	}
	if !errors.Is(err, prefs.ErrNotSet) {
		return 0, err
	}
	if s.cfg.WatchDepth > 0 {
		return s.cfg.WatchDepth, nil
	}
	return config.DefaultWatchDepth, nil
}

// exclusions merges the per-library exclusion preferences with the
// config-level ones, dropping duplicates. With neither stored, the
// built-in defaults apply.
func (s *Service) exclusions() ([]string, error) {
	exclude, err := s.prefs.Exclusions()
	if errors.Is(err, prefs.ErrNotSet) {
		exclude = nil
	} else if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		seen[e] = true
	}
	for _, e := range s.cfg.Exclude {
		if !seen[e] {
			exclude = append(exclude, e)
			seen[e] = true
		}
	}
	if len(exclude) == 0 {
		exclude = append([]string(nil), config.DefaultExclusions...)
	}
	return exclude, nil
}

// SetScanDepth stores a per-library scan depth override, clamped to the
// valid range.
func (s *Service) SetScanDepth(depth int) Result {
	if err := s.prefs.SetScanDepth(depth); err != nil {
		return Fail(err)
	}
	return OK(config.ClampScanDepth(depth))
}

// SetWatchDepth stores a per-library watch depth override.
func (s *Service) SetWatchDepth(depth int) Result {
	if err := s.prefs.SetWatchDepth(depth); err != nil {
		return Fail(err)
	}
	if depth < 1 {
		depth = 1
	}
	return OK(depth)
}

// SetExclusions stores per-library exclusion fragments, replacing any
// previously stored set.
func (s *Service) SetExclusions(patterns []string) Result {
	if err := s.prefs.SetExclusions(patterns); err != nil {
		return Fail(err)
	}
	return OK(patterns)
}

// ScanDirectory enumerates path (or the whole root when path is empty)
// and returns scan statistics. Per-entry errors are collected, never
// raised.
func (s *Service) ScanDirectory(ctx context.Context, path string) Result {
	target, err := s.guard(path)
	if err != nil {
		return Fail(err)
	}
	if !s.scanMu.TryLock() {
		return Fail(ErrScanInProgress)
	}
	defer s.scanMu.Unlock()

	opts, err := s.scanOptions(target)
	if err != nil {
		return Fail(err)
	}
	sc := scanner.New(opts)
	stats, err := sc.Scan(ctx, target)
	if err != nil {
		return Fail(err)
	}

	if err := s.prefs.SetLastScan(time.Now()); err != nil {
		s.log.Warn("failed to record scan time", "error", err)
	}
	s.recordScan(target, sc.Entries())
	return OK(stats)
}

// ListDirectory returns the immediate children of path (or the root).
func (s *Service) ListDirectory(path string) Result {
	target, err := s.guard(path)
	if err != nil {
		return Fail(err)
	}
	opts, err := s.scanOptions(target)
	if err != nil {
		return Fail(err)
	}
	infos, err := scanner.New(opts).ListDirectory(target)
	if err != nil {
		return Fail(err)
	}
	return OK(infos)
}

// HashFile computes the full content hash of a single file.
func (s *Service) HashFile(ctx context.Context, path string) Result {
	target, err := s.guard(path)
	if err != nil {
		return Fail(err)
	}
	result, err := s.hasher.FullHash(ctx, target)
	if err != nil {
		return Fail(err)
	}
	return OK(result)
}

// HashFiles hashes a batch of files, reporting per-path failures as data.
func (s *Service) HashFiles(ctx context.Context, paths []string, onProgress func(types.Progress)) Result {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		target, err := s.guard(p)
		if err != nil {
			return Fail(err)
		}
		resolved = append(resolved, target)
	}
	return OK(s.hasher.HashBatch(ctx, resolved, onProgress))
}

// FindDuplicates scans the root, runs two-phase duplicate detection over
// the discovered images, and persists the resulting groups. Returns the
// groups largest first.
func (s *Service) FindDuplicates(ctx context.Context, onProgress func(types.Progress)) Result {
	root, err := s.root()
	if err != nil {
		return Fail(err)
	}
	if !s.scanMu.TryLock() {
		return Fail(ErrScanInProgress)
	}
	defer s.scanMu.Unlock()

	opts, err := s.scanOptions(root)
	if err != nil {
		return Fail(err)
	}
	sc := scanner.New(opts)
	if _, err := sc.Scan(ctx, root); err != nil {
		return Fail(err)
	}

	entries := sc.Entries()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	sets, err := s.grouper.Rebuild(ctx, paths, onProgress)
	if err != nil {
		return Fail(err)
	}

	if err := s.prefs.SetLastScan(time.Now()); err != nil {
		s.log.Warn("failed to record scan time", "error", err)
	}
	s.recordScan(root, entries)
	return OK(sets)
}

// RebuildGroups re-derives the persisted duplicate groups from the
// catalog without rescanning the filesystem.
func (s *Service) RebuildGroups(ctx context.Context) Result {
	if _, err := s.root(); err != nil {
		return Fail(err)
	}
	if !s.scanMu.TryLock() {
		return Fail(ErrScanInProgress)
	}
	defer s.scanMu.Unlock()

	sets, err := s.grouper.RebuildAll(ctx)
	if err != nil {
		return Fail(err)
	}
	return OK(sets)
}

// Duplicates returns the persisted duplicate groups, largest first.
func (s *Service) Duplicates(ctx context.Context) Result {
	sets, err := s.grouper.Groups(ctx)
	if err != nil {
		return Fail(err)
	}
	return OK(sets)
}

// Stats aggregates the persisted duplicate groups.
func (s *Service) Stats(ctx context.Context) Result {
	stats, err := s.grouper.Stats(ctx)
	if err != nil {
		return Fail(err)
	}
	return OK(stats)
}

// TrashFiles moves the given files to the system trash, continuing past
// failures, and repairs the catalog for each file actually removed.
func (s *Service) TrashFiles(ctx context.Context, paths []string, onProgress func(types.Progress)) Result {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		target, err := s.guard(p)
		if err != nil {
			return Fail(err)
		}
		resolved = append(resolved, target)
	}

	report := s.trasher.TrashFiles(ctx, resolved, onProgress)
	s.afterTrash(ctx, &report)
	return OK(report)
}

// TrashDuplicateGroup trashes every member of the group identified by
// hash except the one at keepIndex into the group's path-ordered member
// list. The index is validated before any file is touched.
func (s *Service) TrashDuplicateGroup(ctx context.Context, hash string, keepIndex int, onProgress func(types.Progress)) Result {
	if _, err := s.root(); err != nil {
		return Fail(err)
	}

	group, err := s.store.GetGroupByHash(ctx, hash)
	if err != nil {
		return Fail(err)
	}
	if group == nil {
		return Fail(fmt.Errorf("no duplicate group for hash %s", hash))
	}
	members, err := s.store.ListGroupMembers(ctx, group.ID)
	if err != nil {
		return Fail(err)
	}
	files := make([]string, len(members))
	for i, m := range members {
		files[i] = m.Path
	}

	report, err := s.trasher.TrashDuplicates(ctx, files, keepIndex, onProgress)
	if err != nil {
		return Fail(err)
	}
	s.afterTrash(ctx, &report)
	return OK(report)
}

// afterTrash removes successfully trashed files from the catalog and
// journals the batch.
func (s *Service) afterTrash(ctx context.Context, report *types.TrashReport) {
	for _, path := range report.Successful {
		if err := s.grouper.RemoveFile(ctx, path); err != nil {
			s.log.Warn("failed to remove trashed file from catalog", "path", path, "error", err)
		}
	}
	s.recordTrash(report)
}

// Info summarizes the managed library and its effective settings.
func (s *Service) Info(ctx context.Context) Result {
	root, err := s.root()
	if err != nil {
		return Fail(err)
	}

	images, err := s.store.CountImages(ctx)
	if err != nil {
		return Fail(err)
	}
	lastScan, err := s.prefs.LastScan()
	if err != nil {
		return Fail(err)
	}
	watchEnabled, err := s.prefs.WatchEnabled()
	if err != nil {
		return Fail(err)
	}
	scanDepth, err := s.scanDepth()
	if err != nil {
		return Fail(err)
	}
	watchDepth, err := s.watchDepth()
	if err != nil {
		return Fail(err)
	}

	return OK(LibraryInfo{
		Root:         root,
		Images:       images,
		LastScan:     lastScan,
		ScanDepth:    scanDepth,
		WatchDepth:   watchDepth,
		WatchEnabled: watchEnabled,
		WatchActive:  s.watchActive(),
	})
}

// ListHistory returns journaled operations, newest first.
func (s *Service) ListHistory(limit int) Result {
	if s.history == nil {
		return OK([]history.Entry{})
	}
	entries, err := s.history.List(limit)
	if err != nil {
		return Fail(err)
	}
	return OK(entries)
}

// GetHistory returns a single journaled operation by ID.
func (s *Service) GetHistory(id string) Result {
	if s.history == nil {
		return Fail(errors.New("history is disabled"))
	}
	entry, err := s.history.Get(id)
	if err != nil {
		return Fail(err)
	}
	return OK(entry)
}

// CleanupHistory prunes journal entries older than the configured
// retention window.
func (s *Service) CleanupHistory() Result {
	if s.history == nil {
		return OK(nil)
	}
	days := s.cfg.History.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}
	if err := s.history.Cleanup(days); err != nil {
		return Fail(err)
	}
	return OK(nil)
}

// recordScan journals a completed scan.
func (s *Service) recordScan(root string, entries []types.FileEntry) {
	if s.history == nil {
		return
	}
	records := make([]history.FileRecord, len(entries))
	for i, e := range entries {
		records[i] = history.FileRecord{Path: e.Path, Size: e.Size}
	}
	if _, err := s.history.LogScan(root, records); err != nil {
		s.log.Warn("failed to journal scan", "error", err)
	}
}

// recordTrash journals a trash batch.
func (s *Service) recordTrash(report *types.TrashReport) {
	if s.history == nil {
		return
	}
	records := make([]history.FileRecord, 0, report.TotalProcessed)
	for _, path := range report.Successful {
		records = append(records, history.FileRecord{Path: path, Status: "trashed"})
	}
	for _, fail := range report.Failed {
		records = append(records, history.FileRecord{Path: fail.Path, Status: "failed", Error: fail.Error})
	}
	root, _ := s.root()
	if _, err := s.history.LogTrash(root, records); err != nil {
		s.log.Warn("failed to journal trash batch", "error", err)
	}
}
