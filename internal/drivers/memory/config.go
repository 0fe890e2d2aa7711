package memory

import (
	"time"

	"cache-manager/internal/common/errors"
)

// DefaultSweepInterval is the cadence of the background expiry sweep.
const DefaultSweepInterval = time.Second

// Config controls the in-process store.
type Config struct {
	// MaxSize bounds the number of entries; zero means unbounded. When set,
	// both reads and writes refresh recency and inserts evict from the
	// least-recently-used end.
	MaxSize int

	// Sliding recomputes an entry's expiry from "now" on every hit instead
	// of leaving it fixed.
	Sliding bool

	// SweepInterval overrides the expiry sweep cadence. The scheduler does
	// not support sub-second delays.
	SweepInterval time.Duration
}

// Validate implements drivers.DriverConfig.
func (c *Config) Validate() error {
	if c.MaxSize < 0 {
		return errors.ConfigError("memory: max size must not be negative")
	}
	if c.SweepInterval < 0 {
		return errors.ConfigError("memory: sweep interval must not be negative")
	}
	return nil
}

// GetType implements drivers.DriverConfig.
func (c *Config) GetType() string {
	return "memory"
}

func (c *Config) sweepInterval() time.Duration {
	if c.SweepInterval <= 0 {
		return DefaultSweepInterval
	}
	return c.SweepInterval
}
