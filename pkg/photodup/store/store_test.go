package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUpsert(t *testing.T, s *Store, path string, size int64, hash string) *Image {
	t.Helper()
	img, err := s.UpsertImage(context.Background(), path, size, time.Now(), hash)
	require.NoError(t, err)
	require.NotNil(t, img)
	return img
}

func TestOpenAppliesMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Reopening an existing database is a no-op migration.
	require.NoError(t, s.Close())
	s2, err := Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()
}

func TestOpenRefusesDirtySchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Simulate a migration that died halfway.
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_migrations SET dirty = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(dbPath)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "dirty")
}

func TestUpsertImage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	img := mustUpsert(t, s, "/photos/a.jpg", 100, "hash1")
	assert.Equal(t, "a.jpg", img.Filename)
	assert.Equal(t, "/photos", img.Directory)
	assert.Equal(t, int64(100), img.Size)
	assert.Equal(t, "hash1", img.Hash)

	// Same path updates in place.
	updated := mustUpsert(t, s, "/photos/a.jpg", 200, "hash2")
	assert.Equal(t, img.ID, updated.ID)
	assert.Equal(t, int64(200), updated.Size)
	assert.Equal(t, "hash2", updated.Hash)

	n, err := s.CountImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetImageByPath_Missing(t *testing.T) {
	s := openTestStore(t)

	img, err := s.GetImageByPath(context.Background(), "/photos/missing.jpg")
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestDeleteImagesByPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, "/photos/2024/a.jpg", 1, "h1")
	mustUpsert(t, s, "/photos/2024/b.jpg", 1, "h2")
	mustUpsert(t, s, "/photos/2024-backup/c.jpg", 1, "h3")
	mustUpsert(t, s, "/other/d.jpg", 1, "h4")

	n, err := s.DeleteImagesByPrefix(ctx, "/photos/2024")
	require.NoError(t, err)
	// "/photos/2024-backup" is not under "/photos/2024".
	assert.Equal(t, int64(2), n)

	remaining, err := s.CountImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestDuplicateHashes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, "/p/a.jpg", 1, "shared")
	mustUpsert(t, s, "/p/b.jpg", 1, "shared")
	mustUpsert(t, s, "/p/c.jpg", 1, "unique")
	// Unhashed rows never match each other.
	mustUpsert(t, s, "/p/d.jpg", 1, "")
	mustUpsert(t, s, "/p/e.jpg", 1, "")

	hashes, err := s.DuplicateHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, hashes)
}

func TestReplaceGroups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := mustUpsert(t, s, "/p/a.jpg", 10, "h1")
	b := mustUpsert(t, s, "/p/b.jpg", 10, "h1")
	c := mustUpsert(t, s, "/p/c.jpg", 20, "h2")
	d := mustUpsert(t, s, "/p/d.jpg", 20, "h2")
	e := mustUpsert(t, s, "/p/e.jpg", 20, "h2")

	err := s.ReplaceGroups(ctx, []GroupInput{
		{Hash: "h1", ImageIDs: []int64{a.ID, b.ID}, TotalSize: 20},
		{Hash: "h2", ImageIDs: []int64{c.ID, d.ID, e.ID}, TotalSize: 60},
	})
	require.NoError(t, err)

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	// Largest group first.
	assert.Equal(t, "h2", groups[0].Hash)
	assert.Equal(t, int64(3), groups[0].Count)
	assert.Equal(t, int64(60), groups[0].TotalSize)
	assert.Equal(t, "h1", groups[1].Hash)

	members, err := s.ListGroupMembers(ctx, groups[0].ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "/p/c.jpg", members[0].Path)

	// A second replace discards the first set entirely.
	err = s.ReplaceGroups(ctx, []GroupInput{
		{Hash: "h1", ImageIDs: []int64{a.ID, b.ID}, TotalSize: 20},
	})
	require.NoError(t, err)

	groups, err = s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "h1", groups[0].Hash)
}

func TestUpsertGroupReplacesMembership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := mustUpsert(t, s, "/p/a.jpg", 10, "h1")
	b := mustUpsert(t, s, "/p/b.jpg", 10, "h1")
	c := mustUpsert(t, s, "/p/c.jpg", 10, "h1")

	require.NoError(t, s.UpsertGroup(ctx, GroupInput{Hash: "h1", ImageIDs: []int64{a.ID, b.ID}, TotalSize: 20}))
	require.NoError(t, s.UpsertGroup(ctx, GroupInput{Hash: "h1", ImageIDs: []int64{a.ID, b.ID, c.ID}, TotalSize: 30}))

	g, err := s.GetGroupByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, int64(3), g.Count)
	assert.Equal(t, int64(30), g.TotalSize)

	members, err := s.ListGroupMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestRemoveImageFromGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := mustUpsert(t, s, "/p/a.jpg", 10, "h1")
	b := mustUpsert(t, s, "/p/b.jpg", 10, "h1")
	c := mustUpsert(t, s, "/p/c.jpg", 10, "h1")

	require.NoError(t, s.UpsertGroup(ctx, GroupInput{Hash: "h1", ImageIDs: []int64{a.ID, b.ID, c.ID}, TotalSize: 30}))

	// Three members down to two: group survives with repaired bookkeeping.
	require.NoError(t, s.RemoveImageFromGroup(ctx, c.ID))
	g, err := s.GetGroupByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, int64(2), g.Count)
	assert.Equal(t, int64(20), g.TotalSize)

	// Two down to one: a single file is not a duplicate group.
	require.NoError(t, s.RemoveImageFromGroup(ctx, b.ID))
	g, err = s.GetGroupByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, g)

	// Removing an ungrouped image is a no-op.
	require.NoError(t, s.RemoveImageFromGroup(ctx, a.ID))
}

func TestDeleteImageCascadesToItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := mustUpsert(t, s, "/p/a.jpg", 10, "h1")
	b := mustUpsert(t, s, "/p/b.jpg", 10, "h1")
	require.NoError(t, s.UpsertGroup(ctx, GroupInput{Hash: "h1", ImageIDs: []int64{a.ID, b.ID}, TotalSize: 20}))

	require.NoError(t, s.DeleteImageByPath(ctx, "/p/a.jpg"))

	g, err := s.GetGroupByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, g)
	members, err := s.ListGroupMembers(ctx, g.ID)
	require.NoError(t, err)
	// The membership row is gone even though the group row still says 2;
	// callers repair the group after catalog deletions.
	assert.Len(t, members, 1)
}

func TestGroupStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := s.GroupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalGroups)
	assert.Equal(t, int64(0), stats.PotentialSpaceSaved)

	a := mustUpsert(t, s, "/p/a.jpg", 10, "h1")
	b := mustUpsert(t, s, "/p/b.jpg", 10, "h1")
	c := mustUpsert(t, s, "/p/c.jpg", 20, "h2")
	d := mustUpsert(t, s, "/p/d.jpg", 20, "h2")
	e := mustUpsert(t, s, "/p/e.jpg", 20, "h2")

	require.NoError(t, s.ReplaceGroups(ctx, []GroupInput{
		{Hash: "h1", ImageIDs: []int64{a.ID, b.ID}, TotalSize: 20},
		{Hash: "h2", ImageIDs: []int64{c.ID, d.ID, e.ID}, TotalSize: 60},
	}))

	stats, err = s.GroupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalGroups)
	assert.Equal(t, int64(3), stats.TotalDuplicates)
	assert.Equal(t, int64(3), stats.LargestGroup)
	// One redundant 10-byte copy plus two redundant 20-byte copies.
	assert.Equal(t, int64(50), stats.PotentialSpaceSaved)
}
