package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// History manages operation journaling to the filesystem.
type History struct {
	dir string
	mu  sync.Mutex
}

// New creates a History writing to the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir}, nil
}

// EnsureDir creates the history directory if it does not exist.
func (h *History) EnsureDir() error {
	return os.MkdirAll(h.dir, 0o755)
}

// LogScan records a completed scan over root.
func (h *History) LogScan(root string, files []FileRecord) (*Entry, error) {
	return h.log(OpScan, root, files)
}

// LogTrash records a batch trash operation.
func (h *History) LogTrash(root string, files []FileRecord) (*Entry, error) {
	return h.log(OpTrash, root, files)
}

func (h *History) log(op OperationType, root string, files []FileRecord) (*Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var totalBytes, failed int64
	for _, f := range files {
		totalBytes += f.Size
		if f.Status == "failed" {
			failed++
		}
	}

	entry := &Entry{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Operation: op,
		Root:      root,
		Files:     files,
		Summary: Summary{
			TotalFiles:  int64(len(files)),
			TotalBytes:  totalBytes,
			FailedFiles: failed,
		},
	}

	if err := h.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}
	return entry, nil
}

// writeEntry writes an entry atomically using a temp file and rename.
func (h *History) writeEntry(entry *Entry) error {
	filePath := filepath.Join(h.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns entries sorted newest first. A limit of 0 or less returns
// everything.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := h.readEntryFile(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves a specific entry by ID.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, err := h.readEntryFile(id + ".json")
	if err != nil {
		return nil, fmt.Errorf("entry not found: %s", id)
	}
	return entry, nil
}

func (h *History) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Cleanup removes entries older than retentionDays.
func (h *History) Cleanup(retentionDays int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read history directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			// Best effort; a locked file just survives until next cleanup.
			_ = os.Remove(filepath.Join(h.dir, f.Name()))
		}
	}
	return nil
}

// generateID creates a unique ID like "trash-2026-08-30T10-30-00-1a2b3c4d".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", op, ts, suffix)
}
