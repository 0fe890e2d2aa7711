// Package manager provides the cache facade: it owns driver configuration,
// instantiation and connection caching, the active driver, and propagation of
// globally registered event listeners to every driver it loads.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cache-manager/internal/common/errors"
	"cache-manager/internal/common/logging"
	"cache-manager/internal/drivers"
)

// Config wires a manager.
type Config struct {
	// Default names the driver activated by Connect when none was chosen.
	Default string

	// Registry resolves driver type names; nil falls back to
	// drivers.DefaultRegistry.
	Registry *drivers.Registry

	// Configs maps driver names to their construction configs.
	Configs map[string]drivers.DriverConfig

	// Options maps driver names to their option bags (default TTL, prefix).
	Options map[string]drivers.Options
}

// globalListener is a manager-scoped subscription mirrored onto every driver
// the manager knows about, present and future.
type globalListener struct {
	id      string
	event   drivers.EventType
	handler drivers.Handler
	once    bool
	ids     map[drivers.Driver]string
}

// Manager is the cache facade. Operations forward to the active driver;
// using the facade before a driver is active fails with a not-initialized
// error.
type Manager struct {
	mu       sync.Mutex
	config   Config
	registry *drivers.Registry
	loaded   map[string]drivers.Driver
	active   drivers.Driver
	globals  []*globalListener
	logger   logging.Logger
}

// New creates a manager. No driver connects until Load, Use or Connect.
func New(config Config) *Manager {
	registry := config.Registry
	if registry == nil {
		registry = drivers.DefaultRegistry
	}
	return &Manager{
		config:   config,
		registry: registry,
		loaded:   make(map[string]drivers.Driver),
		logger:   logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "cache-manager"}),
	}
}

// Connect activates the configured default driver.
func (m *Manager) Connect(ctx context.Context) error {
	if m.config.Default == "" {
		return errors.ConfigError("manager: no default driver configured")
	}
	return m.Use(ctx, m.config.Default)
}

// Load returns the named driver, constructing, configuring and connecting it
// on first use. Each named driver connects at most once per manager lifetime.
func (m *Manager) Load(ctx context.Context, name string) (drivers.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, name)
}

func (m *Manager) loadLocked(ctx context.Context, name string) (drivers.Driver, error) {
	if driver, ok := m.loaded[name]; ok {
		return driver, nil
	}

	factory, err := m.registry.Get(name)
	if err != nil {
		return nil, err
	}

	driver, err := factory.Create(m.config.Configs[name])
	if err != nil {
		return nil, err
	}
	driver.SetOptions(m.config.Options[name])

	// Attach globals before connecting so listeners observe the connected
	// event of drivers loaded after registration.
	for _, listener := range m.globals {
		m.attachLocked(listener, driver)
	}

	if err := driver.Connect(ctx); err != nil {
		return nil, err
	}

	m.loaded[name] = driver
	m.logger.Info("cache driver loaded", logging.Field{Key: "driver", Value: name})
	return driver, nil
}

// Use switches the active driver by name, loading it if needed.
func (m *Manager) Use(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, err := m.loadLocked(ctx, name)
	if err != nil {
		return err
	}
	m.active = driver
	return nil
}

// UseDriver switches the active driver to an externally constructed instance
// and attaches every registered global listener to it.
func (m *Manager) UseDriver(driver drivers.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, listener := range m.globals {
		m.attachLocked(listener, driver)
	}
	m.active = driver
}

// Active returns the active driver, or a not-initialized error.
func (m *Manager) Active() (drivers.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, errors.NotInitializedError()
	}
	return m.active, nil
}

// Close disconnects every loaded driver.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, driver := range m.loaded {
		if err := driver.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.loaded, name)
	}
	m.active = nil
	return firstErr
}

// On registers a handler at manager scope: it is attached to the active
// driver, to every already-loaded driver, and to every driver loaded
// afterward. The returned id removes the whole fan-out via Off.
func (m *Manager) On(event drivers.EventType, handler drivers.Handler) string {
	return m.subscribe(event, handler, false)
}

// Once registers a manager-scoped handler that fires at most once per driver.
func (m *Manager) Once(event drivers.EventType, handler drivers.Handler) string {
	return m.subscribe(event, handler, true)
}

func (m *Manager) subscribe(event drivers.EventType, handler drivers.Handler, once bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	listener := &globalListener{
		id:      uuid.NewString(),
		event:   event,
		handler: handler,
		once:    once,
		ids:     make(map[drivers.Driver]string),
	}
	m.globals = append(m.globals, listener)

	for _, driver := range m.loaded {
		m.attachLocked(listener, driver)
	}
	if m.active != nil {
		m.attachLocked(listener, m.active)
	}

	return listener.id
}

// Off removes a manager-scoped subscription from every attached driver.
func (m *Manager) Off(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, listener := range m.globals {
		if listener.id != id {
			continue
		}
		for driver, subID := range listener.ids {
			driver.Off(listener.event, subID)
		}
		m.globals = append(m.globals[:i], m.globals[i+1:]...)
		return
	}
}

func (m *Manager) attachLocked(listener *globalListener, driver drivers.Driver) {
	if _, attached := listener.ids[driver]; attached {
		return
	}
	if listener.once {
		listener.ids[driver] = driver.Once(listener.event, listener.handler)
	} else {
		listener.ids[driver] = driver.On(listener.event, listener.handler)
	}
}

// Facade operations. Each forwards to the active driver.

func (m *Manager) Get(ctx context.Context, key interface{}) (interface{}, error) {
	driver, err := m.Active()
	if err != nil {
		return nil, err
	}
	return driver.Get(ctx, key)
}

func (m *Manager) Set(ctx context.Context, key, value interface{}, ttl time.Duration) error {
	driver, err := m.Active()
	if err != nil {
		return err
	}
	return driver.Set(ctx, key, value, ttl)
}

func (m *Manager) Remove(ctx context.Context, key interface{}) error {
	driver, err := m.Active()
	if err != nil {
		return err
	}
	return driver.Remove(ctx, key)
}

func (m *Manager) RemoveNamespace(ctx context.Context, namespace string) error {
	driver, err := m.Active()
	if err != nil {
		return err
	}
	return driver.RemoveNamespace(ctx, namespace)
}

func (m *Manager) Flush(ctx context.Context) error {
	driver, err := m.Active()
	if err != nil {
		return err
	}
	return driver.Flush(ctx)
}

func (m *Manager) Has(ctx context.Context, key interface{}) (bool, error) {
	driver, err := m.Active()
	if err != nil {
		return false, err
	}
	return driver.Has(ctx, key)
}

func (m *Manager) Remember(ctx context.Context, key interface{}, ttl time.Duration, produce drivers.Producer) (interface{}, error) {
	driver, err := m.Active()
	if err != nil {
		return nil, err
	}
	return driver.Remember(ctx, key, ttl, produce)
}

func (m *Manager) Pull(ctx context.Context, key interface{}) (interface{}, error) {
	driver, err := m.Active()
	if err != nil {
		return nil, err
	}
	return driver.Pull(ctx, key)
}

func (m *Manager) Forever(ctx context.Context, key, value interface{}) error {
	driver, err := m.Active()
	if err != nil {
		return err
	}
	return driver.Forever(ctx, key, value)
}

func (m *Manager) Increment(ctx context.Context, key interface{}, delta int64) (int64, error) {
	driver, err := m.Active()
	if err != nil {
		return 0, err
	}
	return driver.Increment(ctx, key, delta)
}

func (m *Manager) Decrement(ctx context.Context, key interface{}, delta int64) (int64, error) {
	driver, err := m.Active()
	if err != nil {
		return 0, err
	}
	return driver.Decrement(ctx, key, delta)
}

func (m *Manager) Many(ctx context.Context, keys []interface{}) (map[string]interface{}, error) {
	driver, err := m.Active()
	if err != nil {
		return nil, err
	}
	return driver.Many(ctx, keys)
}

func (m *Manager) SetMany(ctx context.Context, items map[string]interface{}, ttl time.Duration) error {
	driver, err := m.Active()
	if err != nil {
		return err
	}
	return driver.SetMany(ctx, items, ttl)
}

// SetNX forwards to the active driver's native conditional set. Drivers
// without the capability fail with an unsupported-operation error.
func (m *Manager) SetNX(ctx context.Context, key, value interface{}, ttl time.Duration) (bool, error) {
	driver, err := m.Active()
	if err != nil {
		return false, err
	}
	setter, ok := driver.(drivers.ConditionalSetter)
	if !ok {
		return false, errors.UnsupportedError(driver.Name(), "conditional set")
	}
	return setter.SetNX(ctx, key, value, ttl)
}

// Tags returns a tagged view over the active driver.
func (m *Manager) Tags(tags ...string) (*drivers.TaggedDriver, error) {
	driver, err := m.Active()
	if err != nil {
		return nil, err
	}
	return driver.Tags(tags...), nil
}
