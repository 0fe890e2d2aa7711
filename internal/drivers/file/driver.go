// Package file provides the file-backed cache driver. Every canonical key
// maps to one JSON document inside the configured directory; namespace
// removal and flush act on the directory contents.
package file

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cache-manager/internal/common/errors"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/base"
)

const fileExt = ".json"

// Config holds the settings for the file driver.
type Config struct {
	// Directory is where entry documents live. Required.
	Directory string `json:"directory"`
}

// Validate implements drivers.DriverConfig.
func (c *Config) Validate() error {
	if c == nil || c.Directory == "" {
		return errors.ConfigError("file: storage directory is required")
	}
	return nil
}

// GetType implements drivers.DriverConfig.
func (c *Config) GetType() string {
	return "file"
}

// document is the on-disk shape of one entry.
type document struct {
	Value       interface{} `json:"value"`
	TTLMs       int64       `json:"ttl_ms,omitempty"`
	ExpiresAtMs int64       `json:"expires_at_ms,omitempty"`
}

// dirStore adapts a directory of JSON documents to the base Store SPI.
// Expired documents linger until a read or flush removes them; the base
// driver deletes the stale file when Load surfaces a past-expiry entry.
type dirStore struct {
	dir string
}

func (s *dirStore) Open(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.ConnectionError("failed to create cache directory", err)
	}
	return nil
}

func (s *dirStore) Close(ctx context.Context) error {
	return nil
}

func (s *dirStore) Load(ctx context.Context, key string) (*drivers.Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt document is a stale pointer: drop it and miss.
		_ = os.Remove(s.path(key))
		return nil, nil
	}

	entry := &drivers.Entry{Value: doc.Value, TTL: time.Duration(doc.TTLMs) * time.Millisecond}
	if doc.ExpiresAtMs > 0 {
		entry.ExpiresAt = time.UnixMilli(doc.ExpiresAtMs)
	}
	return entry, nil
}

func (s *dirStore) Save(ctx context.Context, key string, entry *drivers.Entry) error {
	doc := document{
		Value: entry.Value,
		TTLMs: entry.TTL.Milliseconds(),
	}
	if !entry.ExpiresAt.IsZero() {
		doc.ExpiresAtMs = entry.ExpiresAt.UnixMilli()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.InternalError("failed to encode cache document", err)
	}
	return os.WriteFile(s.path(key), data, 0o644)
}

func (s *dirStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *dirStore) DeleteNamespace(ctx context.Context, namespace string) error {
	names, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, info := range names {
		key, ok := s.keyFor(info.Name())
		if !ok {
			continue
		}
		if drivers.InNamespace(key, namespace) {
			if err := os.Remove(filepath.Join(s.dir, info.Name())); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

func (s *dirStore) Clear(ctx context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}
	return os.MkdirAll(s.dir, 0o755)
}

// path maps a canonical key to its document path. Escaping keeps path
// separators out of file names while leaving dots intact, so namespace
// prefixes survive the round trip.
func (s *dirStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileExt)
}

func (s *dirStore) keyFor(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

// Driver is the file-backed cache driver.
type Driver struct {
	*base.Driver
	store *dirStore
}

// NewDriver creates a file driver. The directory is created on Connect.
func NewDriver(cfg *Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := &dirStore{dir: cfg.Directory}
	d := &Driver{
		Driver: base.New("file", store),
		store:  store,
	}
	d.Bind(d)

	return d, nil
}
