// Package hasher computes content fingerprints for duplicate detection.
//
// Two fingerprints exist: a cheap quick hash (file size plus boundary
// chunks) used only to narrow candidates, and a full SHA-256 digest of the
// whole file used as the ground truth for byte-identity. Files stream
// through the digest in fixed-size chunks so memory stays bounded
// regardless of file size.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/arenshaw/photodup/pkg/photodup/logging"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// ChunkSize is the read granularity for streaming hashes. Quick hashes
// digest at most two chunks of this size.
const ChunkSize = 64 * 1024

// Algorithm identifies the full-hash digest.
const Algorithm = "sha256"

// EmptyQuickHash is the sentinel quick hash for zero-byte files.
const EmptyQuickHash = "empty"

// Hasher computes quick and full content hashes. It is stateless apart
// from its logger and safe for concurrent use, though batch operations
// process files sequentially by design.
type Hasher struct {
	log *logging.Logger
}

// New creates a Hasher.
func New() *Hasher {
	return &Hasher{log: logging.Get("hasher")}
}

// FullHash streams the file through SHA-256 and returns its hash result.
// Identical bytes always yield identical output. The file is never loaded
// into memory whole.
func (h *Hasher) FullHash(ctx context.Context, path string) (types.HashResult, error) {
	if err := ctx.Err(); err != nil {
		return types.HashResult{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return types.HashResult{}, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return types.HashResult{}, fmt.Errorf("stat %q: %w", path, err)
	}

	digest := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(digest, f, buf); err != nil {
		return types.HashResult{}, fmt.Errorf("reading %q: %w", path, err)
	}

	return types.HashResult{
		Path:      path,
		Hash:      hex.EncodeToString(digest.Sum(nil)),
		Algorithm: Algorithm,
		Size:      info.Size(),
	}, nil
}

// QuickHash computes the cheap pre-filter fingerprint: file size combined
// with the digest of the first chunk, and of the last chunk when the file
// is larger than two chunks. Zero-byte files map to EmptyQuickHash.
//
// Equal content implies equal quick hashes (no false negatives); equal
// quick hashes do not imply equal content. Callers must confirm candidates
// with FullHash.
func (h *Hasher) QuickHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		return EmptyQuickHash, nil
	}

	digest := sha256.New()
	buf := make([]byte, ChunkSize)

	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}
	digest.Write(buf[:n])

	// For large files the tail is as likely to differ as the head
	// (appended data, truncated copies), so fold in the last chunk too.
	if size > 2*ChunkSize {
		if _, err := f.Seek(size-ChunkSize, io.SeekStart); err != nil {
			return "", fmt.Errorf("seeking %q: %w", path, err)
		}
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("reading tail of %q: %w", path, err)
		}
		digest.Write(buf[:n])
	}

	return fmt.Sprintf("%d-%s", size, hex.EncodeToString(digest.Sum(nil))), nil
}

// HashBatch fully hashes every path in order, one file at a time. A
// failure on one file is recorded per path and does not abort the batch.
// onProgress, if non-nil, is invoked after each file with a monotonically
// non-decreasing completed count.
func (h *Hasher) HashBatch(ctx context.Context, paths []string, onProgress func(types.Progress)) types.BatchResult {
	var batch types.BatchResult
	total := len(paths)

	for i, path := range paths {
		if ctx.Err() != nil {
			// Remaining paths are reported as cancelled, not silently dropped.
			for _, rest := range paths[i:] {
				batch.Errors = append(batch.Errors, types.HashError{Path: rest, Error: ctx.Err().Error()})
			}
			break
		}

		result, err := h.FullHash(ctx, path)
		if err != nil {
			h.log.Warn("hash failed", "path", path, "error", err)
			batch.Errors = append(batch.Errors, types.HashError{Path: path, Error: err.Error()})
		} else {
			batch.Results = append(batch.Results, result)
		}

		if onProgress != nil {
			onProgress(types.Progress{Completed: i + 1, Total: total, Path: path})
		}
	}

	return batch
}

// HashBatchStream runs HashBatch in a goroutine and exposes progress as a
// channel instead of a callback, so callers get cancellation and
// backpressure through ordinary channel mechanics. Both channels are
// closed when the batch finishes; the result channel carries exactly one
// value.
func (h *Hasher) HashBatchStream(ctx context.Context, paths []string) (<-chan types.Progress, <-chan types.BatchResult) {
	progress := make(chan types.Progress, len(paths))
	done := make(chan types.BatchResult, 1)

	go func() {
		defer close(progress)
		defer close(done)

		result := h.HashBatch(ctx, paths, func(p types.Progress) {
			select {
			case progress <- p:
			default:
				// Slow consumer; drop rather than stall hashing.
			}
		})
		done <- result
	}()

	return progress, done
}

// TwoPhaseDuplicates finds byte-identical files among paths.
//
// Phase 1 quick-hashes every path and buckets by quick hash. Phase 2
// fully hashes only paths whose bucket has more than one member, then
// groups by full hash. This bounds expensive hashing to the candidate
// set instead of every file.
//
// Progress covers phase 2 (the expensive part). Per-file errors in either
// phase drop that file from consideration without aborting the scan.
// Groups are ordered by descending member count, ties broken by hash.
func (h *Hasher) TwoPhaseDuplicates(ctx context.Context, paths []string, onProgress func(types.Progress)) ([]types.DuplicateSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 1: cheap bucketing.
	buckets := make(map[string][]string)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		qh, err := h.QuickHash(path)
		if err != nil {
			h.log.Debug("quick hash failed, skipping", "path", path, "error", err)
			continue
		}
		buckets[qh] = append(buckets[qh], path)
	}

	var candidates []string
	for _, members := range buckets {
		if len(members) > 1 {
			candidates = append(candidates, members...)
		}
	}
	h.log.Info("two-phase scan narrowed candidates",
		"paths", len(paths), "candidates", len(candidates))

	// Phase 2: confirm candidates with full hashes.
	batch := h.HashBatch(ctx, candidates, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byHash := make(map[string][]types.HashResult)
	for _, r := range batch.Results {
		byHash[r.Hash] = append(byHash[r.Hash], r)
	}

	var groups []types.DuplicateSet
	for hash, results := range byHash {
		if len(results) < 2 {
			continue
		}
		set := types.DuplicateSet{
			Hash:     hash,
			FileSize: results[0].Size,
			Files:    make([]string, 0, len(results)),
		}
		for _, r := range results {
			set.Files = append(set.Files, r.Path)
		}
		groups = append(groups, set)
	}

	// Most duplicated first; the UI depends on this ordering.
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Files) != len(groups[j].Files) {
			return len(groups[i].Files) > len(groups[j].Files)
		}
		return groups[i].Hash < groups[j].Hash
	})

	return groups, nil
}
