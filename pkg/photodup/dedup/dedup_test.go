package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenshaw/photodup/pkg/photodup/hasher"
	"github.com/arenshaw/photodup/pkg/photodup/store"
	"github.com/arenshaw/photodup/pkg/photodup/types"
)

func newTestGrouper(t *testing.T) (*Grouper, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, hasher.New()), st
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRebuild(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "same bytes")
	b := writeFile(t, dir, "b.jpg", "same bytes")
	c := writeFile(t, dir, "c.jpg", "different")

	sets, err := g.Rebuild(ctx, []string{a, b, c}, nil)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.ElementsMatch(t, []string{a, b}, sets[0].Files)

	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].Count)
	assert.Equal(t, int64(2*len("same bytes")), groups[0].TotalSize)

	// Only confirmed duplicates enter the catalog.
	img, err := st.GetImageByPath(ctx, c)
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestRebuildIdempotent(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "xx")
	b := writeFile(t, dir, "b.jpg", "xx")

	_, err := g.Rebuild(ctx, []string{a, b}, nil)
	require.NoError(t, err)
	_, err = g.Rebuild(ctx, []string{a, b}, nil)
	require.NoError(t, err)

	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].Count)

	n, err := st.CountImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRebuildDiscardsStaleGroups(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "old dup")
	b := writeFile(t, dir, "b.jpg", "old dup")

	_, err := g.Rebuild(ctx, []string{a, b}, nil)
	require.NoError(t, err)

	// The files diverge; a rebuild over the new contents leaves no groups.
	require.NoError(t, os.WriteFile(b, []byte("changed"), 0644))
	sets, err := g.Rebuild(ctx, []string{a, b}, nil)
	require.NoError(t, err)
	assert.Empty(t, sets)

	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestRebuildAllDerivesGroupsFromCatalog(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "dup bytes")
	b := writeFile(t, dir, "b.jpg", "dup bytes")

	_, err := g.Rebuild(ctx, []string{a, b}, nil)
	require.NoError(t, err)
	hash := mustHash(t, a)

	// Drop the persisted group while leaving the catalog rows intact.
	require.NoError(t, st.DeleteGroupByHash(ctx, hash))
	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)

	// Re-derivation restores the group from the catalog alone, even
	// with the files gone from disk.
	require.NoError(t, os.Remove(a))
	require.NoError(t, os.Remove(b))

	sets, err := g.RebuildAll(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, hash, sets[0].Hash)
	assert.ElementsMatch(t, []string{a, b}, sets[0].Files)

	groups, err = st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2*len("dup bytes")), groups[0].TotalSize)
}

func mustHash(t *testing.T, path string) string {
	t.Helper()
	res, err := hasher.New().FullHash(context.Background(), path)
	require.NoError(t, err)
	return res.Hash
}

func TestUpsertFileFormsGroup(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "pic")
	require.NoError(t, g.UpsertFile(ctx, a))

	// One file alone is never a group.
	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	b := writeFile(t, dir, "b.jpg", "pic")
	require.NoError(t, g.UpsertFile(ctx, b))

	groups, err = st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].Count)
}

func TestUpsertFileChangedContentRepairsOldGroup(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "dup")
	b := writeFile(t, dir, "b.jpg", "dup")
	require.NoError(t, g.UpsertFile(ctx, a))
	require.NoError(t, g.UpsertFile(ctx, b))

	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// b is rewritten with unique content: the pair group must dissolve.
	require.NoError(t, os.WriteFile(b, []byte("now unique"), 0644))
	require.NoError(t, g.UpsertFile(ctx, b))

	groups, err = st.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestRemoveFile(t *testing.T) {
	g, st := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "trio")
	b := writeFile(t, dir, "b.jpg", "trio")
	c := writeFile(t, dir, "c.jpg", "trio")
	for _, p := range []string{a, b, c} {
		require.NoError(t, g.UpsertFile(ctx, p))
	}

	require.NoError(t, g.RemoveFile(ctx, c))
	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].Count)

	// Dropping to one member dissolves the group.
	require.NoError(t, g.RemoveFile(ctx, b))
	groups, err = st.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	// The removed files are gone from the catalog.
	img, err := st.GetImageByPath(ctx, b)
	require.NoError(t, err)
	assert.Nil(t, img)

	// Removing an untracked path is a no-op.
	require.NoError(t, g.RemoveFile(ctx, filepath.Join(dir, "never-seen.jpg")))
}

func TestGroupsPresentation(t *testing.T) {
	g, _ := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "pair")
	b := writeFile(t, dir, "b.jpg", "pair")
	c := writeFile(t, dir, "c.jpg", "trio!")
	d := writeFile(t, dir, "d.jpg", "trio!")
	e := writeFile(t, dir, "e.jpg", "trio!")

	_, err := g.Rebuild(ctx, []string{a, b, c, d, e}, nil)
	require.NoError(t, err)

	sets, err := g.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	// Largest first.
	assert.Len(t, sets[0].Files, 3)
	assert.Equal(t, int64(len("trio!")), sets[0].FileSize)
	assert.Len(t, sets[1].Files, 2)
}

func TestStats(t *testing.T) {
	g, _ := newTestGrouper(t)
	ctx := context.Background()
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", "dup bytes")
	b := writeFile(t, dir, "b.jpg", "dup bytes")
	_, err := g.Rebuild(ctx, []string{a, b}, nil)
	require.NoError(t, err)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalGroups)
	assert.Equal(t, int64(1), stats.TotalDuplicates)
	assert.Equal(t, int64(2), stats.LargestGroup)
	assert.Equal(t, int64(len("dup bytes")), stats.PotentialSpaceSaved)
}

func TestFindDuplicates(t *testing.T) {
	results := []types.HashResult{
		{Path: "/p/a.jpg", Hash: "aaa", Size: 10},
		{Path: "/p/b.jpg", Hash: "bbb", Size: 20},
		{Path: "/p/c.jpg", Hash: "aaa", Size: 10},
		{Path: "/p/d.jpg", Hash: "ccc", Size: 30},
		{Path: "/p/e.jpg", Hash: "bbb", Size: 20},
		{Path: "/p/f.jpg", Hash: "bbb", Size: 20},
	}

	sets := FindDuplicates(results)
	require.Len(t, sets, 2)

	assert.Equal(t, "bbb", sets[0].Hash)
	assert.Equal(t, int64(20), sets[0].FileSize)
	assert.Equal(t, []string{"/p/b.jpg", "/p/e.jpg", "/p/f.jpg"}, sets[0].Files)

	assert.Equal(t, "aaa", sets[1].Hash)
	assert.Equal(t, []string{"/p/a.jpg", "/p/c.jpg"}, sets[1].Files)
}

func TestFindDuplicatesTieBreaksOnHash(t *testing.T) {
	results := []types.HashResult{
		{Path: "/p/a.jpg", Hash: "zzz", Size: 1},
		{Path: "/p/b.jpg", Hash: "zzz", Size: 1},
		{Path: "/p/c.jpg", Hash: "mmm", Size: 1},
		{Path: "/p/d.jpg", Hash: "mmm", Size: 1},
	}

	sets := FindDuplicates(results)
	require.Len(t, sets, 2)
	assert.Equal(t, "mmm", sets[0].Hash)
	assert.Equal(t, "zzz", sets[1].Hash)
}

func TestFindDuplicatesIgnoresSingletons(t *testing.T) {
	results := []types.HashResult{
		{Path: "/p/a.jpg", Hash: "aaa", Size: 10},
		{Path: "/p/b.jpg", Hash: ""},
	}
	assert.Empty(t, FindDuplicates(results))
}
