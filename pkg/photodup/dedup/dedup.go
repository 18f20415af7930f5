// Package dedup maintains the persisted duplicate groups: a full rebuild
// after a scan, and incremental repair as watched files appear, change, or
// disappear. Groups always reflect the catalog; a group never has fewer
// than two members.
package dedup

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/arenshaw/photodup/pkg/photodup/hasher"
	"github.com/arenshaw/photodup/pkg/photodup/logging"
	"github.com/arenshaw/photodup/pkg/photodup/store"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

// FindDuplicates groups hash results by full content hash, entirely in
// memory. Only hashes shared by two or more files form a set. Sets come
// back largest first, ties broken by hash.
func FindDuplicates(results []types.HashResult) []types.DuplicateSet {
	byHash := make(map[string][]types.HashResult)
	for _, r := range results {
		if r.Hash == "" {
			continue
		}
		byHash[r.Hash] = append(byHash[r.Hash], r)
	}

	sets := make([]types.DuplicateSet, 0, len(byHash))
	for hash, group := range byHash {
		if len(group) < 2 {
			continue
		}
		set := types.DuplicateSet{Hash: hash, FileSize: group[0].Size}
		for _, r := range group {
			set.Files = append(set.Files, r.Path)
		}
		sets = append(sets, set)
	}

	sort.Slice(sets, func(i, j int) bool {
		if len(sets[i].Files) != len(sets[j].Files) {
			return len(sets[i].Files) > len(sets[j].Files)
		}
		return sets[i].Hash < sets[j].Hash
	})
	return sets
}

// Grouper owns the duplicate-group lifecycle.
type Grouper struct {
	store  *store.Store
	hasher *hasher.Hasher
	logger *logging.Logger
}

// New returns a Grouper over the given catalog.
func New(st *store.Store, h *hasher.Hasher) *Grouper {
	return &Grouper{
		store:  st,
		hasher: h,
		logger: logging.Get("dedup"),
	}
}

// Rebuild runs two-phase duplicate detection over paths, refreshes the
// catalog rows for every confirmed duplicate, and replaces the persisted
// groups with the result. Running it twice over the same files yields the
// same groups.
func (g *Grouper) Rebuild(ctx context.Context, paths []string, onProgress func(types.Progress)) ([]types.DuplicateSet, error) {
	sets, err := g.hasher.TwoPhaseDuplicates(ctx, paths, onProgress)
	if err != nil {
		return nil, err
	}

	inputs := make([]store.GroupInput, 0, len(sets))
	for _, set := range sets {
		in := store.GroupInput{
			Hash:      set.Hash,
			TotalSize: set.FileSize * int64(len(set.Files)),
		}
		for _, path := range set.Files {
			info, err := os.Stat(path)
			if err != nil {
				// The file vanished between hashing and persisting;
				// the group shrinks accordingly.
				g.logger.Warn("duplicate member vanished before persist", "path", path, "error", err)
				in.TotalSize -= set.FileSize
				continue
			}
			img, err := g.store.UpsertImage(ctx, path, info.Size(), info.ModTime(), set.Hash)
			if err != nil {
				return nil, err
			}
			in.ImageIDs = append(in.ImageIDs, img.ID)
		}
		if len(in.ImageIDs) >= 2 {
			inputs = append(inputs, in)
		}
	}

	if err := g.store.ReplaceGroups(ctx, inputs); err != nil {
		return nil, err
	}

	g.logger.Info("duplicate groups rebuilt", "groups", len(inputs), "candidates", len(paths))
	return sets, nil
}

// RebuildAll re-derives every duplicate group from the catalog alone,
// without touching the filesystem. Any hash carried by two or more rows
// becomes a group; everything else is discarded. Useful after bulk
// catalog changes when no rescan is wanted.
func (g *Grouper) RebuildAll(ctx context.Context) ([]types.DuplicateSet, error) {
	hashes, err := g.store.DuplicateHashes(ctx)
	if err != nil {
		return nil, err
	}

	inputs := make([]store.GroupInput, 0, len(hashes))
	for _, hash := range hashes {
		members, err := g.store.ListImagesByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		in := store.GroupInput{Hash: hash}
		for _, m := range members {
			in.ImageIDs = append(in.ImageIDs, m.ID)
			in.TotalSize += m.Size
		}
		inputs = append(inputs, in)
	}

	if err := g.store.ReplaceGroups(ctx, inputs); err != nil {
		return nil, err
	}

	total, err := g.store.CountImages(ctx)
	if err != nil {
		return nil, err
	}
	g.logger.Info("duplicate groups re-derived from catalog", "groups", len(inputs), "images", total)
	return g.Groups(ctx)
}

// UpsertFile hashes a single file and repairs group membership around it.
// Called for watch events; never triggers a full rescan.
func (g *Grouper) UpsertFile(ctx context.Context, path string) error {
	prev, err := g.store.GetImageByPath(ctx, path)
	if err != nil {
		return err
	}

	result, err := g.hasher.FullHash(ctx, path)
	if err != nil {
		return fmt.Errorf("hashing %q: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating %q: %w", path, err)
	}

	if _, err := g.store.UpsertImage(ctx, path, result.Size, info.ModTime(), result.Hash); err != nil {
		return err
	}

	// A changed file may have left a group behind under its old hash.
	if prev != nil && prev.Hash != "" && prev.Hash != result.Hash {
		if err := g.refreshGroup(ctx, prev.Hash); err != nil {
			return err
		}
	}

	return g.refreshGroup(ctx, result.Hash)
}

// RemoveFile drops a file from the catalog and repairs its group. Removing
// a member of a two-file group dissolves the group.
func (g *Grouper) RemoveFile(ctx context.Context, path string) error {
	img, err := g.store.GetImageByPath(ctx, path)
	if err != nil {
		return err
	}
	if img == nil {
		return nil
	}

	if err := g.store.RemoveImageFromGroup(ctx, img.ID); err != nil {
		return err
	}
	return g.store.DeleteImageByPath(ctx, path)
}

// refreshGroup recomputes the group for hash from the catalog: two or more
// members means an up-to-date group, fewer means no group at all.
func (g *Grouper) refreshGroup(ctx context.Context, hash string) error {
	members, err := g.store.ListImagesByHash(ctx, hash)
	if err != nil {
		return err
	}

	if len(members) < 2 {
		return g.store.DeleteGroupByHash(ctx, hash)
	}

	in := store.GroupInput{Hash: hash}
	for _, m := range members {
		in.ImageIDs = append(in.ImageIDs, m.ID)
		in.TotalSize += m.Size
	}
	return g.store.UpsertGroup(ctx, in)
}

// Groups returns the persisted duplicate groups as presentation sets,
// largest group first.
func (g *Grouper) Groups(ctx context.Context) ([]types.DuplicateSet, error) {
	groups, err := g.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	sets := make([]types.DuplicateSet, 0, len(groups))
	for _, grp := range groups {
		members, err := g.store.ListGroupMembers(ctx, grp.ID)
		if err != nil {
			return nil, err
		}
		set := types.DuplicateSet{Hash: grp.Hash}
		if grp.Count > 0 {
			set.FileSize = grp.TotalSize / grp.Count
		}
		for _, m := range members {
			set.Files = append(set.Files, m.Path)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// Stats aggregates the persisted groups.
func (g *Grouper) Stats(ctx context.Context) (types.DuplicateStats, error) {
	return g.store.GroupStats(ctx)
}
