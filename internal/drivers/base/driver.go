package base

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cache-manager/internal/common/errors"
	"cache-manager/internal/common/logging"
	"cache-manager/internal/drivers"
)

// Driver implements the generic portions of the drivers.Driver contract over
// a Store. Concrete backends embed *Driver and may shadow individual methods
// with native-atomic equivalents (the redis backend shadows Increment).
type Driver struct {
	name    string
	store   Store
	emitter *drivers.Emitter
	logger  logging.Logger

	// flight is the per-key producer-lock table for Remember: one entry per
	// canonical key, alive only while a producer is in flight on this
	// instance. Concurrent callers share the first caller's result; a failed
	// producer clears the entry so the next call retries.
	flight singleflight.Group

	// self lets generic paths (Remember persisting its result, Tags) reach
	// the concrete driver so shadowed methods take effect.
	self drivers.Driver

	optsMu sync.RWMutex
	opts   drivers.Options
}

// New creates a base driver over a store. Concrete constructors must call
// Bind with the outer driver after embedding.
func New(name string, store Store) *Driver {
	d := &Driver{
		name:   name,
		store:  store,
		logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "driver", Value: name}),
	}
	d.emitter = drivers.NewEmitter(d.logger)
	d.self = d
	return d
}

// Bind registers the outer driver so generic code paths dispatch through any
// shadowed methods.
func (d *Driver) Bind(self drivers.Driver) {
	d.self = self
}

// Name returns the driver type name.
func (d *Driver) Name() string {
	return d.name
}

// Logger returns the driver-scoped logger.
func (d *Driver) Logger() logging.Logger {
	return d.logger
}

// SetOptions replaces the driver options.
func (d *Driver) SetOptions(opts drivers.Options) {
	d.optsMu.Lock()
	d.opts = opts
	d.optsMu.Unlock()
}

// Options returns the current driver options.
func (d *Driver) Options() drivers.Options {
	d.optsMu.RLock()
	defer d.optsMu.RUnlock()
	return d.opts
}

// ParseKey canonicalizes a raw key with the configured prefix.
func (d *Driver) ParseKey(raw interface{}) string {
	return drivers.ParseKey(raw, d.Options().ResolvePrefix())
}

// Connect opens the backing store and emits connected.
func (d *Driver) Connect(ctx context.Context) error {
	if err := d.store.Open(ctx); err != nil {
		d.Emit(ctx, drivers.Event{Type: drivers.EventError, Driver: d.name, Err: err})
		return err
	}
	d.Emit(ctx, drivers.Event{Type: drivers.EventConnected, Driver: d.name})
	return nil
}

// Disconnect closes the backing store and emits disconnected.
func (d *Driver) Disconnect(ctx context.Context) error {
	if err := d.store.Close(ctx); err != nil {
		return err
	}
	d.Emit(ctx, drivers.Event{Type: drivers.EventDisconnected, Driver: d.name})
	return nil
}

// Get returns the value at key, or nil on a miss. An entry found past its
// expiry is removed, emitting expired then miss. Non-primitive values are
// deep-copied so callers cannot mutate cached state.
func (d *Driver) Get(ctx context.Context, key interface{}) (interface{}, error) {
	canonical := d.ParseKey(key)

	entry, err := d.store.Load(ctx, canonical)
	if err != nil {
		d.Emit(ctx, drivers.Event{Type: drivers.EventError, Driver: d.name, Key: canonical, Err: err})
		return nil, err
	}
	if entry == nil {
		d.Emit(ctx, drivers.Event{Type: drivers.EventMiss, Driver: d.name, Key: canonical})
		return nil, nil
	}
	if entry.Expired(time.Now()) {
		if err := d.store.Delete(ctx, canonical); err != nil {
			return nil, err
		}
		d.Emit(ctx, drivers.Event{Type: drivers.EventExpired, Driver: d.name, Key: canonical})
		d.Emit(ctx, drivers.Event{Type: drivers.EventMiss, Driver: d.name, Key: canonical})
		return nil, nil
	}

	value := Copy(entry.Value)
	d.Emit(ctx, drivers.Event{Type: drivers.EventHit, Driver: d.name, Key: canonical, Value: value})
	return value, nil
}

// Set stores a value under key with the resolved TTL and emits set.
func (d *Driver) Set(ctx context.Context, key, value interface{}, ttl time.Duration) error {
	canonical := d.ParseKey(key)
	effective := drivers.ResolveTTL(ttl, d.Options().DefaultTTL)

	if err := d.store.Save(ctx, canonical, drivers.NewEntry(value, effective)); err != nil {
		d.Emit(ctx, drivers.Event{Type: drivers.EventError, Driver: d.name, Key: canonical, Err: err})
		return err
	}

	d.Emit(ctx, drivers.Event{Type: drivers.EventSet, Driver: d.name, Key: canonical, Value: value, TTL: effective})
	return nil
}

// Remove deletes a key. Removing an absent key succeeds without side effects.
func (d *Driver) Remove(ctx context.Context, key interface{}) error {
	canonical := d.ParseKey(key)
	if err := d.store.Delete(ctx, canonical); err != nil {
		return err
	}
	d.Emit(ctx, drivers.Event{Type: drivers.EventRemoved, Driver: d.name, Key: canonical})
	return nil
}

// RemoveNamespace deletes the whole subtree under a namespace.
func (d *Driver) RemoveNamespace(ctx context.Context, namespace string) error {
	if err := d.store.DeleteNamespace(ctx, namespace); err != nil {
		return err
	}
	d.Emit(ctx, drivers.Event{Type: drivers.EventRemoved, Driver: d.name, Namespace: namespace})
	return nil
}

// Flush deletes every key and emits flushed.
func (d *Driver) Flush(ctx context.Context) error {
	if err := d.store.Clear(ctx); err != nil {
		return err
	}
	d.Emit(ctx, drivers.Event{Type: drivers.EventFlushed, Driver: d.name})
	return nil
}

// Has reports whether Get returns a non-nil value. A cached literal nil is
// indistinguishable from a miss.
func (d *Driver) Has(ctx context.Context, key interface{}) (bool, error) {
	value, err := d.self.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

// Remember returns the cached value when present; otherwise it runs produce
// at most once across concurrent callers for the same canonical key, stores
// the result, and hands it to every waiter. A failing producer propagates to
// all waiters and clears the lock entry so a later call retries.
func (d *Driver) Remember(ctx context.Context, key interface{}, ttl time.Duration, produce drivers.Producer) (interface{}, error) {
	if value, err := d.self.Get(ctx, key); err != nil {
		return nil, err
	} else if value != nil {
		return value, nil
	}

	canonical := d.ParseKey(key)
	value, err, _ := d.flight.Do(canonical, func() (interface{}, error) {
		produced, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		if err := d.self.Set(ctx, key, produced, ttl); err != nil {
			return nil, err
		}
		return produced, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Pull returns the value at key and removes it when present.
func (d *Driver) Pull(ctx context.Context, key interface{}) (interface{}, error) {
	value, err := d.self.Get(ctx, key)
	if err != nil || value == nil {
		return nil, err
	}
	if err := d.self.Remove(ctx, key); err != nil {
		return nil, err
	}
	return value, nil
}

// Forever stores a value without expiry.
func (d *Driver) Forever(ctx context.Context, key, value interface{}) error {
	return d.self.Set(ctx, key, value, drivers.NeverExpires)
}

// Increment adds delta to the numeric value at key, treating an absent key
// as zero, and persists the result. This generic path is read-modify-write;
// backends with a native atomic counter shadow it.
func (d *Driver) Increment(ctx context.Context, key interface{}, delta int64) (int64, error) {
	canonical := d.ParseKey(key)

	entry, err := d.store.Load(ctx, canonical)
	if err != nil {
		return 0, err
	}

	var current int64
	if entry != nil && !entry.Expired(time.Now()) {
		n, ok := numericValue(entry.Value)
		if !ok {
			return 0, errors.TypeMismatchError(canonical, entry.Value)
		}
		current = n
	}

	next := current + delta
	if err := d.self.Set(ctx, key, next, drivers.DefaultTTL); err != nil {
		return 0, err
	}
	return next, nil
}

// Decrement is Increment with a negated delta.
func (d *Driver) Decrement(ctx context.Context, key interface{}, delta int64) (int64, error) {
	return d.self.Increment(ctx, key, -delta)
}

// Many fans Get out over keys. The result maps canonical keys to values,
// nil for misses. There is no cross-key atomicity.
func (d *Driver) Many(ctx context.Context, keys []interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		value, err := d.self.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		result[d.ParseKey(key)] = value
	}
	return result, nil
}

// SetMany fans Set out over items with one shared ttl.
func (d *Driver) SetMany(ctx context.Context, items map[string]interface{}, ttl time.Duration) error {
	for key, value := range items {
		if err := d.self.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// On registers an event handler and returns its subscription id.
func (d *Driver) On(event drivers.EventType, handler drivers.Handler) string {
	return d.emitter.On(event, handler)
}

// Once registers a handler removed after its first invocation.
func (d *Driver) Once(event drivers.EventType, handler drivers.Handler) string {
	return d.emitter.Once(event, handler)
}

// Off removes a subscription by id.
func (d *Driver) Off(event drivers.EventType, id string) {
	d.emitter.Off(event, id)
}

// Emit publishes an event to this driver's handlers.
func (d *Driver) Emit(ctx context.Context, event drivers.Event) {
	d.emitter.Emit(ctx, event)
}

// Tags returns a tagged view over the concrete driver.
func (d *Driver) Tags(tags ...string) *drivers.TaggedDriver {
	return drivers.NewTagged(d.self, d.RemoveCanonical, tags...)
}

// RemoveCanonical deletes an entry by its canonical key without re-parsing.
// Tag invalidation uses it to act on recorded canonical keys.
func (d *Driver) RemoveCanonical(ctx context.Context, canonical string) error {
	if err := d.store.Delete(ctx, canonical); err != nil {
		return err
	}
	d.Emit(ctx, drivers.Event{Type: drivers.EventRemoved, Driver: d.name, Key: canonical})
	return nil
}

// numericValue widens the integer-like shapes a store can hand back. JSON
// round trips surface numbers as float64; only integral floats qualify.
func numericValue(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		if v == float32(int64(v)) {
			return int64(v), true
		}
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}
