package prefs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenshaw/photodup/pkg/photodup/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRootPathBootstrap(t *testing.T) {
	s := openTestStore(t)

	// A fresh store has no root yet.
	_, err := s.RootPath()
	assert.ErrorIs(t, err, ErrNotSet)

	require.NoError(t, s.SetRootPath("/photos"))
	root, err := s.RootPath()
	require.NoError(t, err)
	assert.Equal(t, "/photos", root)

	require.NoError(t, s.ClearRootPath())
	_, err = s.RootPath()
	assert.ErrorIs(t, err, ErrNotSet)
}

func TestWatchEnabledDefault(t *testing.T) {
	s := openTestStore(t)

	enabled, err := s.WatchEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetWatchEnabled(true))
	enabled, err = s.WatchEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestDepthUnsetAndClamping(t *testing.T) {
	s := openTestStore(t)

	// Depths never written surface as unset, not as a default.
	_, err := s.ScanDepth()
	assert.ErrorIs(t, err, ErrNotSet)
	_, err = s.WatchDepth()
	assert.ErrorIs(t, err, ErrNotSet)

	require.NoError(t, s.SetWatchDepth(2))
	wdepth, err := s.WatchDepth()
	require.NoError(t, err)
	assert.Equal(t, 2, wdepth)

	// Out-of-range values are clamped before storage.
	require.NoError(t, s.SetScanDepth(100))
	depth, err := s.ScanDepth()
	require.NoError(t, err)
	assert.Equal(t, config.MaxScanDepth, depth)

	require.NoError(t, s.SetScanDepth(0))
	depth, err = s.ScanDepth()
	require.NoError(t, err)
	assert.Equal(t, config.MinScanDepth, depth)
}

func TestExclusions(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Exclusions()
	assert.ErrorIs(t, err, ErrNotSet)

	custom := []string{"node_modules", "backups"}
	require.NoError(t, s.SetExclusions(custom))
	got, err := s.Exclusions()
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestLastScan(t *testing.T) {
	s := openTestStore(t)

	last, err := s.LastScan()
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, s.SetLastScan(now))
	last, err = s.LastScan()
	require.NoError(t, err)
	assert.True(t, now.Equal(last))
}

func TestPreferencesSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetRootPath("/photos"))
	require.NoError(t, s.SetWatchEnabled(true))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	root, err := s2.RootPath()
	require.NoError(t, err)
	assert.Equal(t, "/photos", root)
	enabled, err := s2.WatchEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)
}
