// Package lru provides the fixed-capacity cache driver: a hash index over an
// intrusive doubly linked list with permanent sentinels, giving O(1) get, set
// and eviction with strict recency ordering and independent per-entry expiry.
package lru

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"cache-manager/internal/common/errors"
	"cache-manager/internal/common/logging"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/base"
)

// DefaultCapacity applies when the config leaves capacity unset.
const DefaultCapacity = 1000

// DefaultSweepInterval is the cadence of the background expiry sweep.
const DefaultSweepInterval = time.Second

// Config controls the LRU store.
type Config struct {
	// Capacity bounds the number of entries; zero means DefaultCapacity.
	Capacity int

	// SweepInterval overrides the expiry sweep cadence.
	SweepInterval time.Duration
}

// Validate implements drivers.DriverConfig.
func (c *Config) Validate() error {
	if c.Capacity < 0 {
		return errors.ConfigError("lru: capacity must not be negative")
	}
	if c.SweepInterval < 0 {
		return errors.ConfigError("lru: sweep interval must not be negative")
	}
	return nil
}

// GetType implements drivers.DriverConfig.
func (c *Config) GetType() string {
	return "lru"
}

// node is one key inside the recency list. A key is present in the index
// exactly when its node is linked between the sentinels.
type node struct {
	key   string
	entry *drivers.Entry
	prev  *node
	next  *node
}

// listStore is the Store implementation behind the driver. head.next is the
// most recently used node, tail.prev the least.
type listStore struct {
	mu       sync.Mutex
	index    map[string]*node
	head     *node // sentinel
	tail     *node // sentinel
	capacity int
	interval time.Duration

	sweeper *cron.Cron

	onExpired func(key string)
	onEvicted func(key string)
}

func newListStore(cfg *Config) *listStore {
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &listStore{
		index:    make(map[string]*node),
		head:     head,
		tail:     tail,
		capacity: capacity,
		interval: interval,
	}
}

func (s *listStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeper != nil {
		return nil
	}
	s.sweeper = cron.New()
	s.sweeper.Schedule(cron.Every(s.interval), cron.FuncJob(s.sweep))
	s.sweeper.Start()
	return nil
}

func (s *listStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeper != nil {
		s.sweeper.Stop()
		s.sweeper = nil
	}
	return nil
}

// Load returns the entry at key and refreshes its recency. Expired nodes are
// returned as-is; the base driver unlinks them through Delete.
func (s *listStore) Load(ctx context.Context, key string) (*drivers.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.index[key]
	if !ok {
		return nil, nil
	}
	if !n.entry.Expired(time.Now()) {
		s.unlink(n)
		s.linkFront(n)
	}
	return n.entry, nil
}

// Save updates in place and relinks at the head, or inserts a fresh node and
// evicts from the tail end while over capacity.
func (s *listStore) Save(ctx context.Context, key string, entry *drivers.Entry) error {
	s.mu.Lock()
	var evicted []string

	if n, ok := s.index[key]; ok {
		n.entry = entry
		s.unlink(n)
		s.linkFront(n)
	} else {
		n := &node{key: key, entry: entry}
		s.index[key] = n
		s.linkFront(n)
		for len(s.index) > s.capacity {
			victim := s.tail.prev
			if victim == s.head {
				break
			}
			s.unlink(victim)
			delete(s.index, victim.key)
			evicted = append(evicted, victim.key)
		}
	}
	s.mu.Unlock()

	if s.onEvicted != nil {
		for _, k := range evicted {
			s.onEvicted(k)
		}
	}
	return nil
}

func (s *listStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.index[key]; ok {
		s.unlink(n)
		delete(s.index, key)
	}
	return nil
}

// DeleteNamespace is rejected: the keyspace is flat, there is no
// hierarchical grouping to act on.
func (s *listStore) DeleteNamespace(ctx context.Context, namespace string) error {
	return errors.UnsupportedError("lru", "namespace removal")
}

func (s *listStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[string]*node)
	s.head.next = s.tail
	s.tail.prev = s.head
	return nil
}

func (s *listStore) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (s *listStore) linkFront(n *node) {
	n.next = s.head.next
	n.prev = s.head
	s.head.next.prev = n
	s.head.next = n
}

// sweep removes expired-but-unaccessed nodes between accesses.
func (s *listStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	var due []string
	for key, n := range s.index {
		if n.entry.Expired(now) {
			due = append(due, key)
		}
	}
	for _, key := range due {
		n := s.index[key]
		s.unlink(n)
		delete(s.index, key)
	}
	s.mu.Unlock()

	if s.onExpired != nil {
		for _, key := range due {
			s.onExpired(key)
		}
	}
}

// Driver is the fixed-capacity LRU backend.
type Driver struct {
	*base.Driver
	store *listStore
}

// NewDriver creates an LRU driver. The expiry sweep starts on Connect.
func NewDriver(cfg *Config) (*Driver, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := newListStore(cfg)
	d := &Driver{
		Driver: base.New("lru", store),
		store:  store,
	}
	d.Bind(d)

	store.onExpired = func(key string) {
		d.Emit(context.Background(), drivers.Event{
			Type:   drivers.EventExpired,
			Driver: d.Name(),
			Key:    key,
		})
	}
	store.onEvicted = func(key string) {
		d.Logger().Debug("evicted over capacity", logging.Field{Key: "key", Value: key})
	}

	return d, nil
}

// Len reports the number of entries currently held.
func (d *Driver) Len() int {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	return len(d.store.index)
}
