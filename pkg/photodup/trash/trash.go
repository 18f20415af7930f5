// Package trash moves files to the system trash where available, falling
// back to permanent deletion when no trash support is detected. Batch
// operations continue past individual failures and report per-file outcomes.
package trash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// commandTimeout is the maximum time to wait for trash commands.
const commandTimeout = 30 * time.Second

// ErrInvalidKeepIndex is returned when the keep index of a duplicate batch
// falls outside the slice. No file is touched in that case.
var ErrInvalidKeepIndex = errors.New("keep index out of range")

// Trasher moves files to the system trash.
type Trasher struct{}

// New returns a Trasher.
func New() *Trasher {
	return &Trasher{}
}

// TrashFile moves a single file to the system trash.
// On macOS it uses AppleScript so the file can be put back from Finder.
// On Linux it tries gio trash, then trash-put. With no trash tooling the
// file is permanently deleted.
func (t *Trasher) TrashFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot trash %q: is a directory", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return moveToTrashMacOS(absPath)
	case "linux":
		return moveToTrashLinux(absPath)
	default:
		return fallbackDelete(absPath)
	}
}

// CanTrash reports whether a path refers to an existing regular file that
// the current process can expect to remove.
func (t *Trasher) CanTrash(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// FileInfo describes a path without touching it, for confirmation prompts
// ahead of a trash operation.
func (t *Trasher) FileInfo(path string) (*types.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %q: %w", path, err)
	}
	return &types.FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
		IsImage: types.IsImagePath(path),
	}, nil
}

// TrashFiles trashes each path in order, continuing past failures.
// The report records every path as either successful or failed; a failure
// never rolls back deletions that already happened.
func (t *Trasher) TrashFiles(ctx context.Context, paths []string, onProgress func(types.Progress)) types.TrashReport {
	report := types.TrashReport{TotalProcessed: len(paths)}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, types.TrashFailure{
				Path:  path,
				Error: err.Error(),
			})
			continue
		}

		if err := t.TrashFile(path); err != nil {
			report.Failed = append(report.Failed, types.TrashFailure{
				Path:  path,
				Error: err.Error(),
			})
		} else {
			report.Successful = append(report.Successful, path)
		}

		if onProgress != nil {
			onProgress(types.Progress{
				Completed: i + 1,
				Total:     len(paths),
				Path:      path,
			})
		}
	}

	return report
}

// TrashDuplicates trashes every file in a duplicate group except the one
// at keepIndex. The index is validated before any file is touched.
func (t *Trasher) TrashDuplicates(ctx context.Context, files []string, keepIndex int, onProgress func(types.Progress)) (types.TrashReport, error) {
	if keepIndex < 0 || keepIndex >= len(files) {
		return types.TrashReport{}, fmt.Errorf("%w: %d with %d files", ErrInvalidKeepIndex, keepIndex, len(files))
	}

	targets := make([]string, 0, len(files)-1)
	for i, path := range files {
		if i == keepIndex {
			continue
		}
		targets = append(targets, path)
	}

	return t.TrashFiles(ctx, targets, onProgress), nil
}

// moveToTrashMacOS moves a file to Trash on macOS using AppleScript.
func moveToTrashMacOS(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		return fallbackDelete(path)
	}
	return nil
}

// moveToTrashLinux moves a file to trash on Linux using available tools.
func moveToTrashLinux(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// gio first (GNOME/GTK desktop environments)
	if gioPath, err := exec.LookPath("gio"); err == nil {
		cmd := exec.CommandContext(ctx, gioPath, "trash", path)
		if err := cmd.Run(); err == nil {
			return nil
		}
	}

	// trash-cli (cross-desktop, XDG compliant)
	if trashPath, err := exec.LookPath("trash-put"); err == nil {
		cmd := exec.CommandContext(ctx, trashPath, path)
		if err := cmd.Run(); err == nil {
			return nil
		}
	}

	return fallbackDelete(path)
}

// fallbackDelete permanently removes a file. This is used when no system
// trash is available.
func fallbackDelete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}
