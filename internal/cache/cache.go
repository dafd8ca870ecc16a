// Package cache provides a persistent key -> JSON store with
// millisecond-granularity expiry, backed by a single sqlite file.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a key has no entry. A miss, not a failure.
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned when an entry exists but its TTL has elapsed.
	// The entry is deleted on the way out; callers treat this as a miss.
	ErrExpired = errors.New("cache entry expired")
)

// Cache is a TTL key/value store. Values are stored as JSON text.
// Get and Set are safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache file at path, creating parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// WAL keeps concurrent pipeline writes from blocking reads.
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating cache schema: %w", err)
		}
	}

	return &Cache{db: db}, nil
}

// Get loads the entry for key into dest. Returns ErrNotFound on a miss
// and ErrExpired when the entry's TTL has elapsed; an expired entry is
// deleted before returning.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	var payload string
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT payload, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying cache: %w", err)
	}

	if expiresAt < time.Now().UnixMilli() {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			return fmt.Errorf("deleting expired entry: %w", err)
		}
		return ErrExpired
	}

	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return fmt.Errorf("decoding cached payload: %w", err)
	}
	return nil
}

// Set stores value under key with the given TTL, replacing any existing
// entry. Last writer wins.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache payload: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, string(payload), now, now+ttl.Milliseconds())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key. Removing a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Sweep removes every expired entry and returns how many were deleted.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at < ?", time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweeping cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting swept entries: %w", err)
	}
	return n, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
