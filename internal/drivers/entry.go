package drivers

import "time"

const (
	// DefaultTTL resolves to the driver's configured default.
	DefaultTTL time.Duration = 0

	// NeverExpires stores an entry without expiry regardless of the default.
	NeverExpires time.Duration = -1
)

// Entry is the stored form of one cached value.
//
// ExpiresAt is non-zero exactly when TTL is positive. Backends with native
// expiry (redis) leave ExpiresAt zero and let the store expire the key.
type Entry struct {
	Value     interface{}
	TTL       time.Duration
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// NewEntry builds an entry from an already resolved ttl, where a
// non-positive ttl means no expiry.
func NewEntry(value interface{}, ttl time.Duration) *Entry {
	entry := &Entry{Value: value}
	if ttl > 0 {
		entry.TTL = ttl
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	return entry
}

// ResolveTTL applies the precedence rules: an explicit call-site ttl wins,
// otherwise the configured default applies. The result is the effective ttl,
// where zero means the entry never expires.
func ResolveTTL(ttl, defaultTTL time.Duration) time.Duration {
	if ttl == DefaultTTL {
		ttl = defaultTTL
	}
	if ttl <= 0 {
		return 0
	}
	return ttl
}
