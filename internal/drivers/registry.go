package drivers

import (
	"cache-manager/internal/common/registry"
)

// Registry maps driver type names to factories. It wraps the generic factory
// registry so driver lookup failures carry the cache error taxonomy.
type Registry struct {
	inner *registry.Registry[Factory]
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.New[Factory]()}
}

// Register adds a factory under the given driver type name.
func (r *Registry) Register(driverType string, factory Factory) {
	r.inner.Register(driverType, factory)
}

// Get returns the factory for a driver type, or a DriverNotFound error.
func (r *Registry) Get(driverType string) (Factory, error) {
	return r.inner.Get(driverType)
}

// Create builds a driver through its registered factory.
func (r *Registry) Create(driverType string, config DriverConfig) (Driver, error) {
	factory, err := r.inner.Get(driverType)
	if err != nil {
		return nil, err
	}
	return factory.Create(config)
}

// GetAvailableTypes returns the registered driver type names.
func (r *Registry) GetAvailableTypes() []string {
	return r.inner.GetAvailableTypes()
}

// IsRegistered checks whether a driver type is present.
func (r *Registry) IsRegistered(driverType string) bool {
	return r.inner.IsRegistered(driverType)
}

// DefaultRegistry is the process-wide registry used when a manager is built
// without an explicit one.
var DefaultRegistry = NewRegistry()

// Register adds a factory to the default registry.
func Register(driverType string, factory Factory) {
	DefaultRegistry.Register(driverType, factory)
}
