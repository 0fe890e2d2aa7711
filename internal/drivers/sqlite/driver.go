// Package sqlite provides the database-backed cache driver over a SQLite
// persistent-record store. Entries live in a single table addressed by
// canonical key; namespace removal is a delete-by-filter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cache-manager/internal/common/errors"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/base"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key           TEXT PRIMARY KEY,
	value         TEXT NOT NULL,
	ttl_ms        INTEGER NOT NULL DEFAULT 0,
	expires_at_ms INTEGER NOT NULL DEFAULT 0
)`

// Config holds the settings for the sqlite driver.
type Config struct {
	// Path is the database file path, or ":memory:". Required.
	Path string `json:"path"`
}

// Validate implements drivers.DriverConfig.
func (c *Config) Validate() error {
	if c == nil || c.Path == "" {
		return errors.ConfigError("sqlite: database path is required")
	}
	return nil
}

// GetType implements drivers.DriverConfig.
func (c *Config) GetType() string {
	return "sqlite"
}

// recordStore adapts the cache_entries table to the base Store SPI.
type recordStore struct {
	path string
	db   *sql.DB
}

func (s *recordStore) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return errors.ConnectionError("failed to open sqlite database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.ConnectionError("failed to ping sqlite database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return errors.ConnectionError("failed to migrate sqlite schema", err)
	}

	s.db = db
	return nil
}

func (s *recordStore) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *recordStore) Load(ctx context.Context, key string) (*drivers.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, ttl_ms, expires_at_ms FROM cache_entries WHERE key = ?`, key)

	var (
		raw         string
		ttlMs       int64
		expiresAtMs int64
	)
	if err := row.Scan(&raw, &ttlMs, &expiresAtMs); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		// Unreadable record: treat as a miss and drop the stale row.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return nil, nil
	}

	entry := &drivers.Entry{Value: value, TTL: time.Duration(ttlMs) * time.Millisecond}
	if expiresAtMs > 0 {
		entry.ExpiresAt = time.UnixMilli(expiresAtMs)
	}
	return entry, nil
}

func (s *recordStore) Save(ctx context.Context, key string, entry *drivers.Entry) error {
	data, err := json.Marshal(entry.Value)
	if err != nil {
		return errors.InternalError("failed to encode cache value", err)
	}

	var expiresAtMs int64
	if !entry.ExpiresAt.IsZero() {
		expiresAtMs = entry.ExpiresAt.UnixMilli()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, value, ttl_ms, expires_at_ms) VALUES (?, ?, ?, ?)`,
		key, string(data), entry.TTL.Milliseconds(), expiresAtMs)
	return err
}

func (s *recordStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *recordStore) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ? OR key LIKE ?`,
		namespace, namespace+drivers.Separator+"%")
	return err
}

func (s *recordStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

// Driver is the SQLite-backed cache driver.
type Driver struct {
	*base.Driver
	store *recordStore
}

// NewDriver creates a sqlite driver. The database opens on Connect.
func NewDriver(cfg *Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := &recordStore{path: cfg.Path}
	d := &Driver{
		Driver: base.New("sqlite", store),
		store:  store,
	}
	d.Bind(d)

	return d, nil
}
