package drivers

import (
	"context"
	"time"
)

// TagPrefix is the reserved namespace holding tag index entries.
const TagPrefix = "_tag"

// RemoveCanonicalFunc deletes an entry addressed by its canonical key,
// bypassing key parsing. Tag sets record canonical keys, so invalidation
// must not canonicalize them a second time.
type RemoveCanonicalFunc func(ctx context.Context, canonical string) error

// TaggedDriver decorates a driver with tag bookkeeping. Set and Remove
// maintain the key sets of the tags this view was created with; every other
// operation delegates to the wrapped driver unchanged.
type TaggedDriver struct {
	Driver
	tags            []string
	removeCanonical RemoveCanonicalFunc
}

// NewTagged creates a tagged view over a driver.
func NewTagged(inner Driver, removeCanonical RemoveCanonicalFunc, tags ...string) *TaggedDriver {
	return &TaggedDriver{Driver: inner, tags: tags, removeCanonical: removeCanonical}
}

// BoundTags returns the tags this view maintains.
func (t *TaggedDriver) BoundTags() []string {
	out := make([]string, len(t.tags))
	copy(out, t.tags)
	return out
}

// Set stores the value through the wrapped driver, then records the canonical
// key in each bound tag's key set. Tag sets live as ordinary entries under the
// reserved tag namespace and never expire.
func (t *TaggedDriver) Set(ctx context.Context, key, value interface{}, ttl time.Duration) error {
	if err := t.Driver.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	canonical := t.Driver.ParseKey(key)
	for _, tag := range t.tags {
		keys, err := t.keySet(ctx, tag)
		if err != nil {
			return err
		}
		if !contains(keys, canonical) {
			keys = append(keys, canonical)
			if err := t.Driver.Set(ctx, keysetKey(tag), keys, NeverExpires); err != nil {
				return err
			}
		}
	}

	return nil
}

// Remove deletes the key through the wrapped driver and rewrites each bound
// tag's key set without it. Membership in tags outside this view is untouched.
func (t *TaggedDriver) Remove(ctx context.Context, key interface{}) error {
	if err := t.Driver.Remove(ctx, key); err != nil {
		return err
	}

	canonical := t.Driver.ParseKey(key)
	for _, tag := range t.tags {
		keys, err := t.keySet(ctx, tag)
		if err != nil {
			return err
		}
		filtered := keys[:0]
		for _, k := range keys {
			if k != canonical {
				filtered = append(filtered, k)
			}
		}
		if len(filtered) != len(keys) {
			if err := t.Driver.Set(ctx, keysetKey(tag), filtered, NeverExpires); err != nil {
				return err
			}
		}
	}

	return nil
}

// Invalidate removes every key recorded under the bound tags from the wrapped
// driver, then removes the tag index entries themselves. This is the only
// path that fully clears tag membership.
func (t *TaggedDriver) Invalidate(ctx context.Context) error {
	seen := make(map[string]struct{})
	for _, tag := range t.tags {
		keys, err := t.keySet(ctx, tag)
		if err != nil {
			return err
		}
		for _, canonical := range keys {
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
			if err := t.removeCanonical(ctx, canonical); err != nil {
				return err
			}
		}
	}

	for _, tag := range t.tags {
		if err := t.Driver.Remove(ctx, keysetKey(tag)); err != nil {
			return err
		}
	}

	return nil
}

// keySet fetches a tag's recorded keys, defaulting to empty. Backing stores
// that round-trip through JSON return []interface{}, so both shapes decode.
func (t *TaggedDriver) keySet(ctx context.Context, tag string) ([]string, error) {
	raw, err := t.Driver.Get(ctx, keysetKey(tag))
	if err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
		return keys, nil
	default:
		return nil, nil
	}
}

func keysetKey(tag string) string {
	return TagPrefix + Separator + tag
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
