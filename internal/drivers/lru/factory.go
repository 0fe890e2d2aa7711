package lru

import (
	"cache-manager/internal/common/factory"
	"cache-manager/internal/drivers"
)

// GetFactory returns an LRU driver factory using the generic factory pattern.
func GetFactory() drivers.Factory {
	return factory.NewDriverFactory[*Config](
		"lru",
		func(config *Config) (drivers.Driver, error) {
			return NewDriver(config)
		},
	)
}
