// Package noop provides a cache driver that stores nothing: every read is a
// miss and every write succeeds. Useful for disabling caching without
// changing call sites.
package noop

import (
	"context"

	"cache-manager/internal/common/factory"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/base"
)

// Config carries no settings; it exists so noop fits the factory registry.
type Config struct{}

// Validate implements drivers.DriverConfig.
func (c *Config) Validate() error { return nil }

// GetType implements drivers.DriverConfig.
func (c *Config) GetType() string { return "noop" }

// blackhole discards writes and never holds entries.
type blackhole struct{}

func (blackhole) Open(ctx context.Context) error  { return nil }
func (blackhole) Close(ctx context.Context) error { return nil }

func (blackhole) Load(ctx context.Context, key string) (*drivers.Entry, error) {
	return nil, nil
}

func (blackhole) Save(ctx context.Context, key string, entry *drivers.Entry) error {
	return nil
}

func (blackhole) Delete(ctx context.Context, key string) error         { return nil }
func (blackhole) DeleteNamespace(ctx context.Context, ns string) error { return nil }
func (blackhole) Clear(ctx context.Context) error                      { return nil }

// Driver is the no-op cache driver. Events still fire, so listeners observe
// traffic even though nothing is retained.
type Driver struct {
	*base.Driver
}

// NewDriver creates a noop driver.
func NewDriver(cfg *Config) (*Driver, error) {
	d := &Driver{Driver: base.New("noop", blackhole{})}
	d.Bind(d)
	return d, nil
}

// GetFactory returns a noop driver factory.
func GetFactory() drivers.Factory {
	return factory.NewDriverFactory[*Config](
		"noop",
		func(config *Config) (drivers.Driver, error) {
			return NewDriver(config)
		},
	)
}
