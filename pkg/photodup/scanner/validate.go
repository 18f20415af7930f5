package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidDirectory indicates a root path that is missing, unreadable,
// or not a directory.
var ErrInvalidDirectory = errors.New("invalid directory")

// IsAccessibleDirectory reports whether path is an existing, readable
// directory. It deliberately has no dependency on any configured root so
// it can validate a candidate root before one is established.
func IsAccessibleDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidDirectory)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, path)
	}

	// Readability check: opening the directory catches permission
	// problems that Stat does not.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDirectory, err)
	}
	_ = f.Close()

	return nil
}

// IsWithin reports whether path lies under root (or equals it). Unlike
// IsAccessibleDirectory this predicate requires an established root; the
// two were deliberately kept separate so root selection never depends on
// a root already existing.
func IsWithin(path, root string) bool {
	if root == "" {
		return false
	}
	cleanRoot := filepath.Clean(root)
	cleanPath := filepath.Clean(path)
	return cleanPath == cleanRoot ||
		strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator))
}
