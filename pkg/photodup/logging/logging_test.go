package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseLevel(%q)", tt.in)
		} else {
			assert.NoError(t, err, "ParseLevel(%q)", tt.in)
		}
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.in)
	}
}

func TestInitAndWrite(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "photodup.log")

	err := Init(Config{
		Level: "debug",
		Path:  logPath,
	})
	require.NoError(t, err)
	defer func() { _ = Close() }()

	logger := Get("scanner")
	logger.Info("scan started", "path", "/tmp/photos")
	logger.Debug("detail")

	require.NoError(t, Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan started")
	assert.Contains(t, string(data), "/tmp/photos")
}

func TestComponentLevelOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "photodup.log")

	err := Init(Config{
		Level: "debug",
		Path:  logPath,
		Components: map[string]string{
			"watcher": "error",
		},
	})
	require.NoError(t, err)
	defer func() { _ = Close() }()

	Get("watcher").Info("should be suppressed")
	Get("hasher").Info("should appear")

	require.NoError(t, Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be suppressed")
	assert.Contains(t, string(data), "should appear")
}

func TestGetBeforeInitIsSilent(t *testing.T) {
	// Loggers obtained before Init must not panic and must write nowhere.
	logger := Get("uninitialized-component")
	logger.Info("dropped")
	logger.Error("also dropped")
}

func TestRotatingWriterSizeRotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "photodup.log")

	w, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 64})
	require.NoError(t, err)

	line := strings.Repeat("x", 40) + "\n"
	_, err = w.Write([]byte(line))
	require.NoError(t, err)
	_, err = w.Write([]byte(line)) // crosses 64 bytes, forces rotation
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var rotated int
	for _, e := range entries {
		if e.Name() != "photodup.log" && strings.HasPrefix(e.Name(), "photodup.") {
			rotated++
		}
	}
	assert.Equal(t, 1, rotated, "expected exactly one rotated file")
}

func TestRotatingWriterMaxBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "photodup.log")

	// Pre-create fake rotated files.
	for _, name := range []string{
		"photodup.2026-01-01-000000.log",
		"photodup.2026-01-02-000000.log",
		"photodup.2026-01-03-000000.log",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644))
	}

	w, err := NewRotatingWriter(logPath, RotationConfig{MaxSize: 1024, MaxBackups: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var rotated int
	for _, e := range entries {
		if e.Name() != "photodup.log" {
			rotated++
		}
	}
	assert.LessOrEqual(t, rotated, 1)
}
