package file

import (
	"cache-manager/internal/common/factory"
	"cache-manager/internal/drivers"
)

// GetFactory returns a file driver factory using the generic factory pattern.
func GetFactory() drivers.Factory {
	return factory.NewDriverFactory[*Config](
		"file",
		func(config *Config) (drivers.Driver, error) {
			return NewDriver(config)
		},
	)
}
