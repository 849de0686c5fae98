package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache implements durable caching in a single sqlite file, so
// search results and fetched documents survive across runs.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenSQLiteCache opens (creating if needed) a sqlite-backed cache at
// path. The caller owns the Close.
func OpenSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv_cache (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Get retrieves a value, treating expired rows as misses.
func (c *SQLiteCache) Get(key string) ([]byte, bool) {
	var (
		value     []byte
		expiresAt int64
	)
	row := c.db.QueryRow("SELECT value, expires_at FROM kv_cache WHERE key = ?", key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false
		}
		return nil, false
	}

	if time.Now().Unix() > expiresAt {
		_, _ = c.db.Exec("DELETE FROM kv_cache WHERE key = ?", key)
		return nil, false
	}
	return value, true
}

// Set stores a value with the given TTL (the cache default when zero).
func (c *SQLiteCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	expiresAt := time.Now().Add(ttl).Unix()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO kv_cache (key, value, expires_at) VALUES (?, ?, ?)",
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("write cache row: %w", err)
	}
	return nil
}

// Delete removes a value from the cache
func (c *SQLiteCache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM kv_cache WHERE key = ?", key)
	return err
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
