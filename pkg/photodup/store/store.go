// Package store persists the image catalog and duplicate groups in SQLite.
// The schema is managed by embedded migrations; composite updates run in
// transactions so a crash never leaves a group disagreeing with its members.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/arenshaw/photodup/pkg/photodup/store/migrations"
	"github.com/arenshaw/photodup/pkg/photodup/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Image is a catalog row for one image file.
type Image struct {
	ID        int64
	Path      string
	Filename  string
	Directory string
	Size      int64
	ModTime   time.Time
	Hash      string

	// Reserved for perceptual matching and thumbnailing; no code path
	// writes these yet.
	PerceptualHash sql.NullString
	Width          sql.NullInt64
	Height         sql.NullInt64
	ThumbnailPath  sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Group is a persisted duplicate group. Count always equals the number of
// duplicate_items rows pointing at it and is never below 2.
type Group struct {
	ID        int64
	Hash      string
	Count     int64
	TotalSize int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupInput describes a group to persist: the shared hash and the catalog
// IDs of its members.
type GroupInput struct {
	Hash      string
	ImageIDs  []int64
	TotalSize int64
}

// Store wraps the SQLite connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the catalog database at path and brings
// the schema up to date. Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" gets its own database, so the
	// schema would vanish between queries.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// SQLite ships with foreign keys OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	// A dirty version means a migration died halfway; refuse to run on a
	// half-migrated schema.
	if _, dirty, err := migrations.Status(db); err != nil {
		db.Close()
		return nil, err
	} else if dirty {
		db.Close()
		return nil, fmt.Errorf("database %s is in a dirty migration state", path)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path (or ":memory:").
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const imageColumns = `id, path, filename, directory, size, mod_time, hash,
	perceptual_hash, width, height, thumbnail_path, created_at, updated_at`

func scanImage(row interface{ Scan(...any) error }) (*Image, error) {
	var img Image
	err := row.Scan(&img.ID, &img.Path, &img.Filename, &img.Directory,
		&img.Size, &img.ModTime, &img.Hash,
		&img.PerceptualHash, &img.Width, &img.Height, &img.ThumbnailPath,
		&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// UpsertImage inserts or refreshes the catalog row for path, keyed by the
// unique path column. Reserved columns survive updates.
func (s *Store) UpsertImage(ctx context.Context, path string, size int64, modTime time.Time, hash string) (*Image, error) {
	query := `
		INSERT INTO images (path, filename, directory, size, mod_time, hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			hash = excluded.hash,
			updated_at = CURRENT_TIMESTAMP`
	_, err := s.db.ExecContext(ctx, query, path, filepath.Base(path), filepath.Dir(path), size, modTime, hash)
	if err != nil {
		return nil, fmt.Errorf("upserting image %q: %w", path, err)
	}
	return s.GetImageByPath(ctx, path)
}

// GetImageByPath returns the catalog row for path, or nil when absent.
func (s *Store) GetImageByPath(ctx context.Context, path string) (*Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE path = ?`, path)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding image by path: %w", err)
	}
	return img, nil
}

// ListImagesByHash returns all catalog rows carrying hash, ordered by path.
func (s *Store) ListImagesByHash(ctx context.Context, hash string) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE hash = ? ORDER BY path`, hash)
	if err != nil {
		return nil, fmt.Errorf("listing images by hash: %w", err)
	}
	defer rows.Close()
	return collectImages(rows)
}

func collectImages(rows *sql.Rows) ([]Image, error) {
	var images []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image row: %w", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating image rows: %w", err)
	}
	return images, nil
}

// ListImagesByPrefix returns every catalog row whose path sits under
// prefix, ordered by path.
func (s *Store) ListImagesByPrefix(ctx context.Context, prefix string) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE path = ? OR path LIKE ? ORDER BY path`,
		prefix, prefix+string(filepath.Separator)+"%")
	if err != nil {
		return nil, fmt.Errorf("listing images under %q: %w", prefix, err)
	}
	defer rows.Close()
	return collectImages(rows)
}

// DeleteImageByPath removes the catalog row for path. Group membership is
// removed by cascade; the caller is responsible for re-validating the
// affected group.
func (s *Store) DeleteImageByPath(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting image %q: %w", path, err)
	}
	return nil
}

// DeleteImagesByPrefix removes every catalog row whose path sits under
// prefix, returning the number of rows deleted.
func (s *Store) DeleteImagesByPrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM images WHERE path = ? OR path LIKE ?`, prefix, prefix+string(filepath.Separator)+"%")
	if err != nil {
		return 0, fmt.Errorf("deleting images under %q: %w", prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted images: %w", err)
	}
	return n, nil
}

// CountImages returns the number of catalog rows.
func (s *Store) CountImages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return n, nil
}

// DuplicateHashes returns every hash shared by two or more catalog rows.
// Rows with an empty hash are not yet hashed and never match each other.
func (s *Store) DuplicateHashes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash FROM images
		WHERE hash != ''
		GROUP BY hash
		HAVING COUNT(*) > 1
		ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("listing duplicate hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning hash row: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hash rows: %w", err)
	}
	return hashes, nil
}

// GetGroupByHash returns the duplicate group for hash, or nil when absent.
func (s *Store) GetGroupByHash(ctx context.Context, hash string) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, hash, count, total_size, created_at, updated_at
		FROM duplicate_groups WHERE hash = ?`, hash)
	var g Group
	err := row.Scan(&g.ID, &g.Hash, &g.Count, &g.TotalSize, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding group by hash: %w", err)
	}
	return &g, nil
}

// ListGroups returns all duplicate groups, largest first. Ties break on
// hash for a stable order.
func (s *Store) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hash, count, total_size, created_at, updated_at
		FROM duplicate_groups
		ORDER BY count DESC, hash ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Hash, &g.Count, &g.TotalSize, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group rows: %w", err)
	}
	return groups, nil
}

// ListGroupMembers returns the catalog rows belonging to a group, ordered
// by path.
func (s *Store) ListGroupMembers(ctx context.Context, groupID int64) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+` FROM images
		WHERE id IN (SELECT image_id FROM duplicate_items WHERE group_id = ?)
		ORDER BY path`, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	defer rows.Close()
	return collectImages(rows)
}

// ReplaceGroups atomically discards every persisted group and writes the
// given set. An empty input clears the tables.
func (s *Store) ReplaceGroups(ctx context.Context, inputs []GroupInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// Items cascade from their groups.
	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicate_groups`); err != nil {
		return fmt.Errorf("clearing groups: %w", err)
	}

	for _, in := range inputs {
		if err := insertGroupTx(ctx, tx, in); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// UpsertGroup writes a single group and its membership, replacing any
// previous group with the same hash.
func (s *Store) UpsertGroup(ctx context.Context, in GroupInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE hash = ?`, in.Hash); err != nil {
		return fmt.Errorf("replacing group %q: %w", in.Hash, err)
	}
	if err := insertGroupTx(ctx, tx, in); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertGroupTx(ctx context.Context, tx *sql.Tx, in GroupInput) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO duplicate_groups (hash, count, total_size, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		in.Hash, len(in.ImageIDs), in.TotalSize)
	if err != nil {
		return fmt.Errorf("inserting group %q: %w", in.Hash, err)
	}
	groupID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading group id: %w", err)
	}
	for _, imageID := range in.ImageIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO duplicate_items (group_id, image_id) VALUES (?, ?)`,
			groupID, imageID)
		if err != nil {
			return fmt.Errorf("inserting group member %d: %w", imageID, err)
		}
	}
	return nil
}

// DeleteGroupByHash removes a group and, by cascade, its membership rows.
func (s *Store) DeleteGroupByHash(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("deleting group %q: %w", hash, err)
	}
	return nil
}

// RemoveImageFromGroup detaches an image from its group and repairs the
// group's bookkeeping in the same transaction. A group left with fewer
// than two members is deleted outright.
func (s *Store) RemoveImageFromGroup(ctx context.Context, imageID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID int64
	err = tx.QueryRowContext(ctx,
		`SELECT group_id FROM duplicate_items WHERE image_id = ?`, imageID).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // not in any group
	}
	if err != nil {
		return fmt.Errorf("finding group for image %d: %w", imageID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM duplicate_items WHERE image_id = ?`, imageID); err != nil {
		return fmt.Errorf("removing image %d from group: %w", imageID, err)
	}

	var remaining int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM duplicate_items WHERE group_id = ?`, groupID).Scan(&remaining); err != nil {
		return fmt.Errorf("counting remaining members: %w", err)
	}

	if remaining < 2 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM duplicate_groups WHERE id = ?`, groupID); err != nil {
			return fmt.Errorf("deleting emptied group %d: %w", groupID, err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE duplicate_groups SET
				count = ?,
				total_size = (SELECT COALESCE(SUM(i.size), 0)
					FROM images i
					JOIN duplicate_items di ON di.image_id = i.id
					WHERE di.group_id = duplicate_groups.id),
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, remaining, groupID)
		if err != nil {
			return fmt.Errorf("updating group %d: %w", groupID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GroupStats aggregates the persisted groups. Space saved counts every
// member beyond the first in each group.
func (s *Store) GroupStats(ctx context.Context) (types.DuplicateStats, error) {
	var stats types.DuplicateStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(count - 1), 0),
			COALESCE(MAX(count), 0),
			COALESCE(SUM(total_size - total_size / count), 0)
		FROM duplicate_groups`).Scan(
		&stats.TotalGroups, &stats.TotalDuplicates, &stats.LargestGroup, &stats.PotentialSpaceSaved)
	if err != nil {
		return types.DuplicateStats{}, fmt.Errorf("aggregating group stats: %w", err)
	}
	return stats, nil
}
