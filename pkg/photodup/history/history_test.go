package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, h.EnsureDir())
	return h
}

func TestNewRejectsEmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestLogScan(t *testing.T) {
	h := newTestHistory(t)

	entry, err := h.LogScan("/photos", []FileRecord{
		{Path: "/photos/a.jpg", Size: 100},
		{Path: "/photos/b.jpg", Size: 200},
	})
	require.NoError(t, err)

	assert.Equal(t, OpScan, entry.Operation)
	assert.Equal(t, "/photos", entry.Root)
	assert.Equal(t, int64(2), entry.Summary.TotalFiles)
	assert.Equal(t, int64(300), entry.Summary.TotalBytes)
	assert.Equal(t, int64(0), entry.Summary.FailedFiles)
	assert.Contains(t, entry.ID, "scan-")
}

func TestLogTrashCountsFailures(t *testing.T) {
	h := newTestHistory(t)

	entry, err := h.LogTrash("/photos", []FileRecord{
		{Path: "/photos/a.jpg", Size: 100, Status: "trashed"},
		{Path: "/photos/b.jpg", Status: "failed", Error: "permission denied"},
	})
	require.NoError(t, err)

	assert.Equal(t, OpTrash, entry.Operation)
	assert.Equal(t, int64(1), entry.Summary.FailedFiles)
}

func TestListNewestFirst(t *testing.T) {
	h := newTestHistory(t)

	first, err := h.LogScan("/photos", nil)
	require.NoError(t, err)
	second, err := h.LogTrash("/photos", nil)
	require.NoError(t, err)

	// Force distinct timestamps on the persisted entries.
	older := filepath.Join(h.dir, first.ID+".json")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	entries, err := h.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)

	limited, err := h.List(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListMissingDirectory(t *testing.T) {
	h, err := New(filepath.Join(t.TempDir(), "never-created"))
	require.NoError(t, err)

	entries, err := h.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGet(t *testing.T) {
	h := newTestHistory(t)

	entry, err := h.LogScan("/photos", []FileRecord{{Path: "/photos/a.jpg", Size: 1}})
	require.NoError(t, err)

	got, err := h.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "/photos/a.jpg", got.Files[0].Path)

	_, err = h.Get("no-such-entry")
	assert.Error(t, err)
	_, err = h.Get("")
	assert.Error(t, err)
}

func TestListSkipsCorruptFiles(t *testing.T) {
	h := newTestHistory(t)

	_, err := h.LogScan("/photos", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "garbage.json"), []byte("{not json"), 0o644))

	entries, err := h.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCleanup(t *testing.T) {
	h := newTestHistory(t)

	old, err := h.LogScan("/photos", nil)
	require.NoError(t, err)
	recent, err := h.LogScan("/photos", nil)
	require.NoError(t, err)

	stale := filepath.Join(h.dir, old.ID+".json")
	past := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(stale, past, past))

	require.NoError(t, h.Cleanup(30))

	entries, err := h.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, recent.ID, entries[0].ID)
}
