// Package drivers defines the contract implemented by every cache backend,
// together with the behaviors shared across backends: canonical key parsing,
// TTL resolution, event fan-out, and tag-based bulk invalidation.
package drivers

import (
	"context"
	"time"
)

// Producer computes a value for Remember on a cache miss.
type Producer func(ctx context.Context) (interface{}, error)

// Driver is the operation set every cache backend implements.
//
// Reads never fail on a missing or expired key: they return nil and emit a
// miss event. Implementations must be safe for concurrent use.
type Driver interface {
	// Name returns the driver type name ("memory", "redis", ...).
	Name() string

	// Connect opens the backing store and starts any background maintenance.
	Connect(ctx context.Context) error

	// Disconnect releases the backing store and stops background maintenance.
	Disconnect(ctx context.Context) error

	// SetOptions replaces the driver options (default TTL, key prefix).
	SetOptions(opts Options)

	// Options returns the current driver options.
	Options() Options

	// ParseKey canonicalizes a raw key using the configured prefix.
	ParseKey(raw interface{}) string

	// Get returns the cached value, or nil on a miss. Non-primitive values
	// are returned as defensive copies.
	Get(ctx context.Context, key interface{}) (interface{}, error)

	// Set stores a value. A zero ttl resolves to the driver default;
	// NeverExpires stores without expiry.
	Set(ctx context.Context, key, value interface{}, ttl time.Duration) error

	// Remove deletes a key. Removing an absent key is not an error.
	Remove(ctx context.Context, key interface{}) error

	// RemoveNamespace deletes every key under the given first path segment.
	RemoveNamespace(ctx context.Context, namespace string) error

	// Flush deletes every key held by the driver.
	Flush(ctx context.Context) error

	// Has reports whether Get would return a non-nil value.
	Has(ctx context.Context, key interface{}) (bool, error)

	// Remember returns the cached value, or runs produce exactly once across
	// concurrent callers, stores the result, and returns it.
	Remember(ctx context.Context, key interface{}, ttl time.Duration, produce Producer) (interface{}, error)

	// Pull returns the cached value and removes it when present.
	Pull(ctx context.Context, key interface{}) (interface{}, error)

	// Forever stores a value without expiry.
	Forever(ctx context.Context, key, value interface{}) error

	// Increment adds delta to the numeric value at key (0 when absent) and
	// returns the new value. Non-numeric values fail with a type mismatch.
	Increment(ctx context.Context, key interface{}, delta int64) (int64, error)

	// Decrement subtracts delta from the numeric value at key.
	Decrement(ctx context.Context, key interface{}, delta int64) (int64, error)

	// Many fans Get out over keys; the result maps canonical keys to values,
	// with nil for misses.
	Many(ctx context.Context, keys []interface{}) (map[string]interface{}, error)

	// SetMany fans Set out over items. There is no cross-key atomicity.
	SetMany(ctx context.Context, items map[string]interface{}, ttl time.Duration) error

	// On registers a handler for an event type and returns a subscription id.
	On(event EventType, handler Handler) string

	// Once registers a handler that is removed after its first invocation.
	Once(event EventType, handler Handler) string

	// Off removes the subscription with the given id.
	Off(event EventType, id string)

	// Tags returns a decorated view of this driver that records tag
	// membership on Set and supports bulk invalidation.
	Tags(tags ...string) *TaggedDriver
}

// ConditionalSetter is the capability-checked secondary interface for backends
// with a native conditional set. Callers probe for it with a type assertion.
type ConditionalSetter interface {
	// SetNX stores the value only if the key is absent, reporting whether
	// the write happened.
	SetNX(ctx context.Context, key, value interface{}, ttl time.Duration) (bool, error)
}

// Invalidator is implemented by tagged driver views.
type Invalidator interface {
	// Invalidate removes every key recorded under the bound tags, then the
	// tag index entries themselves.
	Invalidate(ctx context.Context) error
}

// Options carries the cross-driver option bag.
type Options struct {
	// DefaultTTL applies when Set is called with a zero ttl.
	// Zero or negative means entries never expire by default.
	DefaultTTL time.Duration

	// Prefix is prepended to every canonical key.
	Prefix string

	// PrefixFunc, when set, is evaluated per operation and takes precedence
	// over Prefix.
	PrefixFunc func() string
}

// ResolvePrefix returns the effective key prefix for one operation.
func (o Options) ResolvePrefix() string {
	if o.PrefixFunc != nil {
		return o.PrefixFunc()
	}
	return o.Prefix
}

// DriverConfig is implemented by every driver's construction config.
type DriverConfig interface {
	Validate() error
	GetType() string
}

// Factory creates configured driver instances.
type Factory interface {
	Create(config DriverConfig) (Driver, error)
	GetType() string
}
