package memory

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"cache-manager/internal/drivers"
)

// treeStore holds entries in a nested map addressed by dotted canonical path.
// The first path segment is the namespace, deletable as one subtree. A side
// index of absolute expiries feeds the periodic sweep, and an optional
// access-order list implements the bounded-size mode.
type treeStore struct {
	mu      sync.Mutex
	root    map[string]interface{}
	expiry  map[string]time.Time
	access  *list.List               // front = most recently used
	touched map[string]*list.Element // canonical key -> access node

	maxSize  int
	sliding  bool
	interval time.Duration

	sweeper *cron.Cron

	// onExpired reports keys removed by the sweep so the driver can emit
	// expired events.
	onExpired func(key string)

	// onEvicted reports keys dropped by the bounded-size mode.
	onEvicted func(key string)
}

func newTreeStore(cfg *Config) *treeStore {
	s := &treeStore{
		root:     make(map[string]interface{}),
		expiry:   make(map[string]time.Time),
		maxSize:  cfg.MaxSize,
		sliding:  cfg.Sliding,
		interval: cfg.sweepInterval(),
	}
	if s.maxSize > 0 {
		s.access = list.New()
		s.touched = make(map[string]*list.Element)
	}
	return s
}

// Open starts the expiry sweep. The cron scheduler runs on its own goroutine
// and never keeps the process alive on its own.
func (s *treeStore) Open(ctx context.Context) error {
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

// Close stops the sweep so nothing leaks after teardown.
func (s *treeStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeper != nil {
		s.sweeper.Stop()
		s.sweeper = nil
	}
	return nil
}

// Load returns a snapshot of the entry at key. The stored entry is only ever
// touched under the lock; handing out a copy keeps concurrent readers off the
// sliding-expiry rewrite.
func (s *treeStore) Load(ctx context.Context, key string) (*drivers.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.lookup(key)
	if entry == nil {
		return nil, nil
	}

	now := time.Now()
	if !entry.Expired(now) {
		s.touch(key)
		if s.sliding && entry.TTL > 0 {
			entry.ExpiresAt = now.Add(entry.TTL)
			s.expiry[key] = entry.ExpiresAt
		}
	}

	snapshot := *entry
	return &snapshot, nil
}

// Save stores the entry, creating intermediate levels as needed. Colliding
// shapes clobber: writing under an existing leaf replaces that leaf with a
// subtree, and writing a leaf over an existing subtree discards the subtree.
// Index records of whatever was clobbered are dropped with it.
func (s *treeStore) Save(ctx context.Context, key string, entry *drivers.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments := strings.Split(key, drivers.Separator)
	node := s.root
	path := ""
	for _, segment := range segments[:len(segments)-1] {
		if path == "" {
			path = segment
		} else {
			path += drivers.Separator + segment
		}
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			if _, wasLeaf := node[segment].(*drivers.Entry); wasLeaf {
				s.dropIndexLocked(path)
			}
			child = make(map[string]interface{})
			node[segment] = child
		}
		node = child
	}

	leaf := segments[len(segments)-1]
	if _, wasSubtree := node[leaf].(map[string]interface{}); wasSubtree {
		s.dropSubtreeIndexLocked(key)
	}
	_, existed := node[leaf].(*drivers.Entry)
	node[leaf] = entry

	if entry.ExpiresAt.IsZero() {
		delete(s.expiry, key)
	} else {
		s.expiry[key] = entry.ExpiresAt
	}

	s.touch(key)
	if !existed {
		s.evictOverCapacity()
	}

	return nil
}

func (s *treeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
	return nil
}

func (s *treeStore) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.root, namespace)

	for key := range s.expiry {
		if drivers.InNamespace(key, namespace) {
			delete(s.expiry, key)
		}
	}
	if s.touched != nil {
		for key, elem := range s.touched {
			if drivers.InNamespace(key, namespace) {
				s.access.Remove(elem)
				delete(s.touched, key)
			}
		}
	}

	return nil
}

func (s *treeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = make(map[string]interface{})
	s.expiry = make(map[string]time.Time)
	if s.maxSize > 0 {
		s.access = list.New()
		s.touched = make(map[string]*list.Element)
	}

	return nil
}

// lookup walks the tree to the entry at key, or nil.
func (s *treeStore) lookup(key string) *drivers.Entry {
	segments := strings.Split(key, drivers.Separator)
	node := s.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			return nil
		}
		node = child
	}
	entry, _ := node[segments[len(segments)-1]].(*drivers.Entry)
	return entry
}

func (s *treeStore) deleteLocked(key string) {
	segments := strings.Split(key, drivers.Separator)
	node := s.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			return
		}
		node = child
	}

	leaf := segments[len(segments)-1]
	if _, ok := node[leaf].(*drivers.Entry); !ok {
		return
	}
	delete(node, leaf)
	s.dropIndexLocked(key)
}

// dropIndexLocked removes one key's expiry and recency records.
func (s *treeStore) dropIndexLocked(key string) {
	delete(s.expiry, key)
	if elem, ok := s.touched[key]; ok {
		s.access.Remove(elem)
		delete(s.touched, key)
	}
}

// dropSubtreeIndexLocked removes the index records of every key under prefix.
func (s *treeStore) dropSubtreeIndexLocked(prefix string) {
	p := prefix + drivers.Separator
	for k := range s.expiry {
		if strings.HasPrefix(k, p) {
			delete(s.expiry, k)
		}
	}
	for k, elem := range s.touched {
		if strings.HasPrefix(k, p) {
			s.access.Remove(elem)
			delete(s.touched, k)
		}
	}
}

// touch moves a key to the most-recently-used end of the access list.
func (s *treeStore) touch(key string) {
	if s.touched == nil {
		return
	}
	if elem, ok := s.touched[key]; ok {
		s.access.MoveToFront(elem)
		return
	}
	s.touched[key] = s.access.PushFront(key)
}

// evictOverCapacity drops least-recently-used keys until back at capacity.
func (s *treeStore) evictOverCapacity() {
	if s.touched == nil {
		return
	}
	for len(s.touched) > s.maxSize {
		back := s.access.Back()
		if back == nil {
			return
		}
		key := back.Value.(string)
		s.deleteLocked(key)
		if s.onEvicted != nil {
			s.onEvicted(key)
		}
	}
}

// sweep evicts every past-due entry registered in the expiry index.
func (s *treeStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	var due []string
	for key, expiresAt := range s.expiry {
		if now.After(expiresAt) {
			due = append(due, key)
		}
	}
	for _, key := range due {
		s.deleteLocked(key)
	}
	s.mu.Unlock()

	if s.onExpired != nil {
		for _, key := range due {
			s.onExpired(key)
		}
	}
}
