package factory

import (
	"cache-manager/internal/drivers"
)

// driverFactoryAdapter adapts a typed generic factory to drivers.Factory.
type driverFactoryAdapter[C drivers.DriverConfig] struct {
	*Factory[C, drivers.Driver]
}

// Create validates the config and builds the driver. A nil config reaches the
// constructor as the zero config so drivers with usable defaults accept it.
func (a *driverFactoryAdapter[C]) Create(config drivers.DriverConfig) (drivers.Driver, error) {
	if config == nil {
		var zero C
		return a.Factory.creator(zero)
	}
	return a.Factory.Create(config)
}

// NewDriverFactory creates a drivers.Factory from a typed constructor.
// Config validation stays with the constructor, matching each driver's
// Validate implementation.
func NewDriverFactory[C drivers.DriverConfig](typeName string, create func(C) (drivers.Driver, error)) drivers.Factory {
	return &driverFactoryAdapter[C]{
		Factory: New[C, drivers.Driver](typeName, create),
	}
}
