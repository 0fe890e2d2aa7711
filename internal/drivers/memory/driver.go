// Package memory provides the in-process cache driver: nested-map storage
// keyed by canonical dotted path, namespace subtree deletion, a periodic
// expiry sweep, and optional bounded size with recency tracking.
package memory

import (
	"context"

	"cache-manager/internal/common/logging"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/base"
)

// Driver is the in-process cache backend.
type Driver struct {
	*base.Driver
	store *treeStore
}

// NewDriver creates an in-process driver. The expiry sweep starts on Connect.
func NewDriver(cfg *Config) (*Driver, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := newTreeStore(cfg)
	d := &Driver{
		Driver: base.New("memory", store),
		store:  store,
	}
	d.Bind(d)

	store.onExpired = func(key string) {
		d.Emit(context.Background(), drivers.Event{
			Type:   drivers.EventExpired,
			Driver: d.Name(),
			Key:    key,
		})
	}
	store.onEvicted = func(key string) {
		d.Logger().Debug("evicted over capacity", logging.Field{Key: "key", Value: key})
	}

	return d, nil
}
