// Package types provides core data types for the photodup duplicate finder.
// It includes structures for enumerated files, hash results, duplicate sets,
// and trash reports, along with utility functions for formatting file sizes.
package types

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
)

// FileEntry describes a file discovered during directory enumeration.
// Entries are ephemeral: they are produced by a scan and consumed by the
// hashing pipeline, never persisted directly.
type FileEntry struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the last modification time of the file.
	ModTime time.Time `json:"mod_time"`

	// IsImage reports whether the file extension is on the image allowlist.
	IsImage bool `json:"is_image"`
}

// FileInfo describes a single entry in a non-recursive directory listing.
type FileInfo struct {
	Path    string      `json:"path"`
	Name    string      `json:"name"`
	Size    int64       `json:"size"`
	ModTime time.Time   `json:"mod_time"`
	Mode    os.FileMode `json:"mode"`
	IsImage bool        `json:"is_image"`
}

// HumanSize returns the file size formatted as a human-readable string.
func (f *FileInfo) HumanSize() string {
	return FormatSize(f.Size)
}

// HashResult is the outcome of fully hashing one file.
type HashResult struct {
	// Path is the absolute path of the hashed file.
	Path string `json:"path"`

	// Hash is the hex-encoded digest of the full file content.
	Hash string `json:"hash"`

	// Algorithm identifies the digest algorithm, e.g. "sha256".
	Algorithm string `json:"algorithm"`

	// Size is the file size in bytes at hash time.
	Size int64 `json:"size"`
}

// HashError pairs a path with the error that prevented hashing it.
type HashError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BatchResult aggregates the outcome of hashing a batch of files.
// Failures are per-path and never abort the batch.
type BatchResult struct {
	Results []HashResult `json:"results"`
	Errors  []HashError  `json:"errors,omitempty"`
}

// Progress is a snapshot of batch progress. Completed is monotonically
// non-decreasing within one batch call.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Path      string `json:"path,omitempty"`
}

// DuplicateSet is one group of byte-identical files, as produced by an
// in-memory duplicate scan. Persisted groups live in the store package.
type DuplicateSet struct {
	// Hash is the full-content digest shared by every member.
	Hash string `json:"hash"`

	// FileSize is the size of each member in bytes.
	FileSize int64 `json:"file_size"`

	// Files are the member paths, in input order.
	Files []string `json:"files"`
}

// Count returns the number of members in the set.
func (d *DuplicateSet) Count() int {
	return len(d.Files)
}

// WastedBytes returns the bytes recoverable by keeping a single member.
func (d *DuplicateSet) WastedBytes() int64 {
	if len(d.Files) < 2 {
		return 0
	}
	return d.FileSize * int64(len(d.Files)-1)
}

// ScanStats aggregates the results of one recursive directory scan.
type ScanStats struct {
	TotalFiles  int64 `json:"total_files"`
	TotalSize   int64 `json:"total_size"`
	ImageFiles  int64 `json:"image_files"`
	Directories int64 `json:"directories"`
}

// ScanError pairs a path with the error encountered while scanning it.
// Per-entry errors are collected, not raised.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// TrashFailure pairs a path with the reason it could not be trashed.
type TrashFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// TrashReport aggregates the outcome of a batch trash operation.
// Succeeded deletions stay in effect even when others fail.
type TrashReport struct {
	Successful     []string       `json:"successful"`
	Failed         []TrashFailure `json:"failed,omitempty"`
	TotalProcessed int            `json:"total_processed"`
}

// DuplicateStats aggregates persisted duplicate-group bookkeeping.
type DuplicateStats struct {
	// TotalGroups is the number of persisted duplicate groups.
	TotalGroups int64 `json:"total_groups"`

	// TotalDuplicates counts redundant copies: every member beyond the
	// first in each group.
	TotalDuplicates int64 `json:"total_duplicates"`

	// LargestGroup is the member count of the biggest group.
	LargestGroup int64 `json:"largest_group"`

	// PotentialSpaceSaved is the total bytes recoverable across all groups.
	PotentialSpaceSaved int64 `json:"potential_space_saved"`
}

// imageExtensions is the fixed allowlist used to classify image files.
// Classification is by extension only; content sniffing is out of scope.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".raw":  true,
	".cr2":  true,
	".nef":  true,
	".arw":  true,
	".dng":  true,
}

// IsImagePath reports whether the path has an image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageExtensions returns a copy of the extension allowlist.
func ImageExtensions() []string {
	exts := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
