package sqlite

import (
	"cache-manager/internal/common/factory"
	"cache-manager/internal/drivers"
)

// GetFactory returns a sqlite driver factory using the generic factory pattern.
func GetFactory() drivers.Factory {
	return factory.NewDriverFactory[*Config](
		"sqlite",
		func(config *Config) (drivers.Driver, error) {
			return NewDriver(config)
		},
	)
}
