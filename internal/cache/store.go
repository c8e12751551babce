// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements a content-addressed key/value store with expiry.
// Every expensive pipeline operation (search, fetch, synthesis) goes through
// the store so repeated runs replay cached results instead of re-invoking
// external services.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DefaultTTL is the entry lifetime used when the configured TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// timeNow returns the current time. Package-level var so tests can fake the
// clock for expiry checks.
var timeNow = time.Now

// CacheWriteError reports a failed cache write. Writes are advisory: the
// caller has already computed the value and may return it regardless.
type CacheWriteError struct {
	Key string
	Err error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("cache write for key %s: %v", e.Key, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

// Store is a SQLite-backed cache with a fixed TTL. A Store assumes a single
// process; concurrent writers to the same key are not coordinated and the
// last writer wins, which is acceptable because entries are idempotent
// recomputations of the same semantic input.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	log *zap.Logger
}

// Open opens or creates the cache database at path, creating parent
// directories and the schema as needed. A ttl of zero selects DefaultTTL.
// A nil logger disables logging.
func Open(path string, ttl time.Duration, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, ttl: ttl, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		payload TEXT NOT NULL
	)`)
	return err
}

// Key derives the cache key for a semantic string, e.g. "article_12345".
// The key is the SHA-256 hex digest, stable across runs and processes.
func Key(semantic string) string {
	sum := sha256.Sum256([]byte(semantic))
	return fmt.Sprintf("%x", sum)
}

// Get returns the payload stored under key if the entry exists and is
// younger than the TTL. Expired, corrupt, or unreadable entries are reported
// as a miss, never an error; the caller recomputes and overwrites. Get does
// not delete expired entries.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	var createdAt, payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, payload FROM entries WHERE key = ?`, key,
	).Scan(&createdAt, &payload)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Debug("cache read failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		s.log.Debug("cache entry has corrupt timestamp, treating as miss",
			zap.String("key", key))
		return nil, false
	}
	if timeNow().Sub(created) >= s.ttl {
		return nil, false
	}

	raw := json.RawMessage(payload)
	if !json.Valid(raw) {
		s.log.Debug("cache entry has corrupt payload, treating as miss",
			zap.String("key", key))
		return nil, false
	}

	s.log.Debug("cache hit", zap.String("key", key))
	return raw, true
}

// Put stores payload under key with the current timestamp, overwriting any
// prior entry. Failures return a *CacheWriteError; the caller's computed
// value remains usable.
func (s *Store) Put(ctx context.Context, key string, payload json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, created_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			created_at=excluded.created_at, payload=excluded.payload`,
		key, timeNow().UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return &CacheWriteError{Key: key, Err: err}
	}
	s.log.Debug("cache write", zap.String("key", key))
	return nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Stats summarizes the store contents.
type Stats struct {
	// Entries is the total number of entries, expired ones included.
	Entries int

	// Oldest is the creation time of the oldest entry; zero when empty.
	Oldest time.Time
}

// ReadStats returns entry count and oldest creation time.
func (s *Store) ReadStats(ctx context.Context) (Stats, error) {
	var st Stats
	var oldest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), min(created_at) FROM entries`,
	).Scan(&st.Entries, &oldest)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	if oldest.Valid {
		if t, parseErr := time.Parse(time.RFC3339Nano, oldest.String); parseErr == nil {
			st.Oldest = t
		}
	}
	return st, nil
}
