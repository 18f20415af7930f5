// Package prefs provides Badger DB-backed storage for user preferences:
// the managed root directory, watch settings, and scan tuning. Tuning
// values never written report ErrNotSet so callers can fall back to their
// configuration; only the watch flag and last-scan time default to their
// zero values.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/arenshaw/photodup/pkg/photodup/config"
)

// Keys for the stored preferences.
const (
	keyRootPath     = "p:root_path"
	keyWatchEnabled = "p:watch_enabled"
	keyScanDepth    = "p:scan_depth"
	keyWatchDepth   = "p:watch_depth"
	keyExclusions   = "p:exclusions"
	keyLastScan     = "p:last_scan"
)

// ErrNotSet is returned for preferences with no stored value and no default.
var ErrNotSet = errors.New("preference not set")

// Store is the preference storage backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a preference store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening preference store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotSet
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) set(key string, val []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// RootPath returns the managed root directory. ErrNotSet before SetRootPath
// has ever been called; callers treat that as the bootstrap state.
func (s *Store) RootPath() (string, error) {
	val, err := s.get(keyRootPath)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// SetRootPath stores the managed root directory.
func (s *Store) SetRootPath(path string) error {
	return s.set(keyRootPath, []byte(path))
}

// ClearRootPath removes the managed root, returning the store to the
// bootstrap state.
func (s *Store) ClearRootPath() error {
	return s.delete(keyRootPath)
}

// WatchEnabled reports whether filesystem watching should run. Defaults to
// false.
func (s *Store) WatchEnabled() (bool, error) {
	val, err := s.get(keyWatchEnabled)
	if errors.Is(err, ErrNotSet) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(val) == "true", nil
}

// SetWatchEnabled stores the watch flag.
func (s *Store) SetWatchEnabled(enabled bool) error {
	return s.set(keyWatchEnabled, []byte(strconv.FormatBool(enabled)))
}

// ScanDepth returns the stored per-library scan depth override, or
// ErrNotSet when none was ever stored.
func (s *Store) ScanDepth() (int, error) {
	return s.getInt(keyScanDepth)
}

// SetScanDepth stores the scan depth, clamping it to the valid range.
func (s *Store) SetScanDepth(depth int) error {
	return s.set(keyScanDepth, []byte(strconv.Itoa(config.ClampScanDepth(depth))))
}

// WatchDepth returns the stored per-library watch depth override, or
// ErrNotSet when none was ever stored.
func (s *Store) WatchDepth() (int, error) {
	return s.getInt(keyWatchDepth)
}

// SetWatchDepth stores the watch depth.
func (s *Store) SetWatchDepth(depth int) error {
	if depth < 1 {
		depth = 1
	}
	return s.set(keyWatchDepth, []byte(strconv.Itoa(depth)))
}

func (s *Store) getInt(key string) (int, error) {
	val, err := s.get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(val))
	if err != nil {
		return 0, fmt.Errorf("corrupt preference %s: %w", key, err)
	}
	return n, nil
}

// Exclusions returns the stored per-library exclusion fragments, or
// ErrNotSet when none were ever stored.
func (s *Store) Exclusions() ([]string, error) {
	val, err := s.get(keyExclusions)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, fmt.Errorf("corrupt exclusions preference: %w", err)
	}
	return out, nil
}

// SetExclusions stores the exclusion fragments.
func (s *Store) SetExclusions(patterns []string) error {
	data, err := json.Marshal(patterns)
	if err != nil {
		return err
	}
	return s.set(keyExclusions, data)
}

// LastScan returns the time of the last completed scan, or the zero time
// when no scan has run.
func (s *Store) LastScan() (time.Time, error) {
	val, err := s.get(keyLastScan)
	if errors.Is(err, ErrNotSet) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	var t time.Time
	if err := t.UnmarshalText(val); err != nil {
		return time.Time{}, fmt.Errorf("corrupt last-scan preference: %w", err)
	}
	return t, nil
}

// SetLastScan stores the completion time of a scan.
func (s *Store) SetLastScan(t time.Time) error {
	data, err := t.MarshalText()
	if err != nil {
		return err
	}
	return s.set(keyLastScan, data)
}
