package redis

import (
	"cache-manager/internal/common/factory"
	"cache-manager/internal/drivers"
)

// GetFactory returns a redis driver factory using the generic factory pattern.
func GetFactory() drivers.Factory {
	return factory.NewDriverFactory[*Config](
		"redis",
		func(config *Config) (drivers.Driver, error) {
			return NewDriver(config)
		},
	)
}
