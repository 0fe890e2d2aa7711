// Package base provides the shared behaviors every cache backend inherits:
// canonical key handling, TTL resolution, lazy expiry, defensive copying,
// stampede-safe memoization, batch fan-out and event emission. Backends
// implement the narrow Store SPI and embed *base.Driver.
package base

import (
	"context"

	"cache-manager/internal/drivers"
)

// Store is the storage SPI a backend implements. All methods address entries
// by canonical key. A miss is (nil, nil), never an error.
//
// Load returns entries as stored, including ones already past expiry; the
// base driver owns expiry semantics (lazy removal plus expired/miss events).
// Backends with native expiry simply never return expired entries.
type Store interface {
	// Open prepares the backing store (connections, directories, schemas)
	// and starts background maintenance.
	Open(ctx context.Context) error

	// Close releases the backing store and stops background maintenance.
	Close(ctx context.Context) error

	// Load fetches the entry stored at a canonical key.
	Load(ctx context.Context, key string) (*drivers.Entry, error)

	// Save persists an entry at a canonical key, replacing any previous one.
	Save(ctx context.Context, key string, entry *drivers.Entry) error

	// Delete removes the entry at a canonical key. Absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// DeleteNamespace removes every entry under the given first path segment.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
