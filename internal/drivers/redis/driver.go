// Package redis provides the network-backed cache driver over a Redis
// key-value store. Values travel as JSON; expiry, conditional set and the
// counter commands use Redis natives, so the generic read-modify-write paths
// are shadowed with atomic equivalents.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"cache-manager/internal/common/errors"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/base"
)

// kvStore adapts a go-redis client to the base Store SPI. Expiry is native:
// expired keys simply stop existing, so Load never surfaces stale entries.
type kvStore struct {
	config *Config
	client *redis.Client

	// prefixFn yields the driver's current key prefix, scoping Clear to the
	// driver's keyspace instead of the whole database.
	prefixFn func() string
}

func (s *kvStore) Open(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.config.Address,
		Password: s.config.Password,
		DB:       s.config.DB,
		PoolSize: s.config.poolSize(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return errors.ConnectionError("failed to connect to redis", err)
	}

	s.client = client
	return nil
}

func (s *kvStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *kvStore) Load(ctx context.Context, key string) (*drivers.Entry, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &drivers.Entry{Value: decode(raw)}, nil
}

func (s *kvStore) Save(ctx context.Context, key string, entry *drivers.Entry) error {
	data, err := json.Marshal(entry.Value)
	if err != nil {
		return errors.InternalError("failed to encode cache value", err)
	}
	return s.client.Set(ctx, key, data, expiration(entry.TTL)).Err()
}

func (s *kvStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *kvStore) DeleteNamespace(ctx context.Context, namespace string) error {
	if err := s.client.Del(ctx, namespace).Err(); err != nil {
		return err
	}
	return s.deleteByPattern(ctx, namespace+drivers.Separator+"*")
}

func (s *kvStore) Clear(ctx context.Context) error {
	if prefix := s.prefixFn(); prefix != "" {
		return s.deleteByPattern(ctx, prefix+drivers.Separator+"*")
	}
	return s.client.FlushDB(ctx).Err()
}

func (s *kvStore) deleteByPattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return s.client.Del(ctx, keys...).Err()
	}
	return nil
}

// decode maps a stored JSON document back to a value. Integral numbers come
// back as int64 so they stay arithmetic-compatible; documents that fail to
// parse are returned as raw strings.
func decode(raw string) interface{} {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return raw
	}
	return normalizeNumbers(value)
}

func normalizeNumbers(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	case map[string]interface{}:
		for k, item := range v {
			v[k] = normalizeNumbers(item)
		}
		return v
	default:
		return v
	}
}

// Driver is the Redis-backed cache driver.
type Driver struct {
	*base.Driver
	store *kvStore
}

// NewDriver creates a redis driver. The connection opens on Connect.
func NewDriver(cfg *Config) (*Driver, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := &kvStore{config: cfg}
	d := &Driver{
		Driver: base.New("redis", store),
		store:  store,
	}
	d.Bind(d)
	store.prefixFn = func() string {
		return d.Options().ResolvePrefix()
	}

	return d, nil
}

// Increment shadows the generic read-modify-write path with Redis's atomic
// INCRBY. An absent key starts at zero; a non-integer value fails with a
// type mismatch and leaves the key unchanged.
func (d *Driver) Increment(ctx context.Context, key interface{}, delta int64) (int64, error) {
	canonical := d.ParseKey(key)

	next, err := d.store.client.IncrBy(ctx, canonical, delta).Result()
	if err != nil {
		if isNotIntegerErr(err) {
			return 0, errors.TypeMismatchError(canonical, "non-integer")
		}
		return 0, err
	}

	d.Emit(ctx, drivers.Event{Type: drivers.EventSet, Driver: d.Name(), Key: canonical, Value: next})
	return next, nil
}

// Decrement shadows the generic path with atomic DECRBY.
func (d *Driver) Decrement(ctx context.Context, key interface{}, delta int64) (int64, error) {
	canonical := d.ParseKey(key)

	next, err := d.store.client.DecrBy(ctx, canonical, delta).Result()
	if err != nil {
		if isNotIntegerErr(err) {
			return 0, errors.TypeMismatchError(canonical, "non-integer")
		}
		return 0, err
	}

	d.Emit(ctx, drivers.Event{Type: drivers.EventSet, Driver: d.Name(), Key: canonical, Value: next})
	return next, nil
}

// SetNX implements drivers.ConditionalSetter with the native conditional set,
// reporting whether the write happened.
func (d *Driver) SetNX(ctx context.Context, key, value interface{}, ttl time.Duration) (bool, error) {
	canonical := d.ParseKey(key)
	effective := drivers.ResolveTTL(ttl, d.Options().DefaultTTL)

	data, err := json.Marshal(value)
	if err != nil {
		return false, errors.InternalError("failed to encode cache value", err)
	}

	stored, err := d.store.client.SetNX(ctx, canonical, data, expiration(effective)).Result()
	if err != nil {
		return false, err
	}
	if stored {
		d.Emit(ctx, drivers.Event{Type: drivers.EventSet, Driver: d.Name(), Key: canonical, Value: value, TTL: effective})
	}
	return stored, nil
}

// expiration maps the entry TTL to a redis SET expiration. The never-expires
// sentinel is negative, which go-redis would send as KEEPTTL; map it to zero
// so the key's previous TTL is cleared, not kept.
func expiration(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}

func isNotIntegerErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not an integer")
}
