package memory

import (
	"cache-manager/internal/common/factory"
	"cache-manager/internal/drivers"
)

// GetFactory returns a memory driver factory using the generic factory pattern.
func GetFactory() drivers.Factory {
	return factory.NewDriverFactory[*Config](
		"memory",
		func(config *Config) (drivers.Driver, error) {
			return NewDriver(config)
		},
	)
}
