// Package history journals scan and trash operations to JSON files so a
// user can audit what the organizer did to their library.
package history

import "time"

// OperationType represents the type of recorded operation.
type OperationType string

const (
	// OpScan represents a library scan.
	OpScan OperationType = "scan"
	// OpTrash represents a batch trash operation.
	OpTrash OperationType = "trash"
)

// Entry represents a single recorded operation.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Root      string        `json:"root,omitempty"`
	Files     []FileRecord  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// FileRecord represents one file touched by an operation.
type FileRecord struct {
	Path   string `json:"path"`
	Size   int64  `json:"size,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Status string `json:"status,omitempty"` // "trashed" or "failed" for trash entries
	Error  string `json:"error,omitempty"`
}

// Summary aggregates an entry's file records.
type Summary struct {
	TotalFiles  int64 `json:"total_files"`
	TotalBytes  int64 `json:"total_bytes"`
	FailedFiles int64 `json:"failed_files,omitempty"`
}
