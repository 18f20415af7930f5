package trash

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], []byte(name), 0644))
	}
	return paths
}

func TestTrashFile(t *testing.T) {
	tr := New()
	tmpFile := filepath.Join(t.TempDir(), "test.jpg")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

	require.NoError(t, tr.TrashFile(tmpFile))

	_, err := os.Stat(tmpFile)
	assert.True(t, os.IsNotExist(err))
}

func TestTrashFile_Nonexistent(t *testing.T) {
	tr := New()
	err := tr.TrashFile(filepath.Join(t.TempDir(), "nonexistent.jpg"))
	assert.Error(t, err)
}

func TestTrashFile_Directory(t *testing.T) {
	tr := New()
	dir := t.TempDir()

	err := tr.TrashFile(dir)
	assert.Error(t, err)

	// The directory must survive the refused call.
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
}

func TestCanTrash(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.jpg")

	assert.True(t, tr.CanTrash(paths[0]))
	assert.False(t, tr.CanTrash(filepath.Join(dir, "missing.jpg")))
	assert.False(t, tr.CanTrash(dir))
}

func TestTrashFiles_ContinuesPastFailures(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.jpg", "c.jpg")
	missing := filepath.Join(dir, "b.jpg")

	batch := []string{paths[0], missing, paths[1]}
	report := tr.TrashFiles(context.Background(), batch, nil)

	assert.Equal(t, 3, report.TotalProcessed)
	assert.Equal(t, []string{paths[0], paths[1]}, report.Successful)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, missing, report.Failed[0].Path)

	// Succeeded deletions stay in effect despite the failure.
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestTrashFiles_Progress(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.jpg", "b.jpg", "c.jpg")

	var seen []types.Progress
	tr.TrashFiles(context.Background(), paths, func(p types.Progress) {
		seen = append(seen, p)
	})

	require.Len(t, seen, 3)
	for i, p := range seen {
		assert.Equal(t, i+1, p.Completed)
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, paths[i], p.Path)
	}
}

func TestTrashFiles_Cancelled(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.jpg", "b.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := tr.TrashFiles(ctx, paths, nil)
	assert.Empty(t, report.Successful)
	assert.Len(t, report.Failed, 2)

	// Nothing was removed.
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestTrashDuplicates_KeepsIndexedFile(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.jpg", "b.jpg", "c.jpg")

	report, err := tr.TrashDuplicates(context.Background(), paths, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalProcessed)
	assert.ElementsMatch(t, []string{paths[0], paths[2]}, report.Successful)
	assert.Empty(t, report.Failed)

	// The kept file is untouched.
	_, statErr := os.Stat(paths[1])
	assert.NoError(t, statErr)
	for _, p := range []string{paths[0], paths[2]} {
		_, statErr := os.Stat(p)
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestTrashDuplicates_InvalidKeepIndex(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.jpg", "b.jpg")

	for _, idx := range []int{-1, 2, 100} {
		_, err := tr.TrashDuplicates(context.Background(), paths, idx, nil)
		assert.ErrorIs(t, err, ErrInvalidKeepIndex)
	}

	// Validation failure touches nothing.
	for _, p := range paths {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr)
	}
}

func TestFileInfo(t *testing.T) {
	tr := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0644))

	info, err := tr.FileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, "photo.jpg", info.Name)
	assert.Equal(t, int64(len("contents")), info.Size)
	assert.True(t, info.IsImage)

	// File must survive the inspection.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestFileInfo_Missing(t *testing.T) {
	tr := New()
	_, err := tr.FileInfo(filepath.Join(t.TempDir(), "gone.jpg"))
	assert.Error(t, err)
}
