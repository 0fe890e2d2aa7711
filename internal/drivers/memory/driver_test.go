package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheerrors "cache-manager/internal/common/errors"
	"cache-manager/internal/drivers"
)

func newTestDriver(t *testing.T, cfg *Config) *Driver {
	t.Helper()
	d, err := NewDriver(cfg)
	require.NoError(t, err)
	return d
}

type eventCounter struct {
	mu     sync.Mutex
	counts map[drivers.EventType]int
	keys   map[drivers.EventType][]string
}

func newEventCounter() *eventCounter {
	return &eventCounter{
		counts: make(map[drivers.EventType]int),
		keys:   make(map[drivers.EventType][]string),
	}
}

func (c *eventCounter) watch(d drivers.Driver, events ...drivers.EventType) {
	for _, event := range events {
		event := event
		d.On(event, func(ctx context.Context, e drivers.Event) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.counts[event]++
			c.keys[event] = append(c.keys[event], e.Key)
			return nil
		})
	}
}

func (c *eventCounter) count(event drivers.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[event]
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	require.NoError(t, d.Set(ctx, "user.profile", map[string]interface{}{"name": "ada"}, 0))

	value, err := d.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "ada"}, value)
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	stored := map[string]interface{}{"count": 1}
	require.NoError(t, d.Set(ctx, "k", stored, 0))

	first, err := d.Get(ctx, "k")
	require.NoError(t, err)
	first.(map[string]interface{})["count"] = 99

	second, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, second.(map[string]interface{})["count"])
}

func TestGetMissReturnsNil(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	counter := newEventCounter()
	counter.watch(d, drivers.EventMiss)

	value, err := d.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, 1, counter.count(drivers.EventMiss))
}

func TestRemoveAbsentKeyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	assert.NoError(t, d.Remove(ctx, "never.stored"))
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	counter := newEventCounter()
	counter.watch(d, drivers.EventExpired, drivers.EventMiss)

	require.NoError(t, d.Set(ctx, "k", "v", time.Second))

	time.Sleep(1100 * time.Millisecond)

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, 1, counter.count(drivers.EventExpired))
	assert.Equal(t, 1, counter.count(drivers.EventMiss))
}

func TestSweepEvictsWithoutAccess(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	require.NoError(t, d.Connect(ctx))
	defer d.Disconnect(ctx)

	counter := newEventCounter()
	counter.watch(d, drivers.EventExpired)

	require.NoError(t, d.Set(ctx, "k", "v", time.Second))

	// The sweep runs on a one second cadence; give it two rounds.
	time.Sleep(2500 * time.Millisecond)

	assert.Equal(t, 1, counter.count(drivers.EventExpired))
}

func TestDefaultTTLFromOptions(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	d.SetOptions(drivers.Options{DefaultTTL: time.Second})

	require.NoError(t, d.Set(ctx, "k", "v", 0))

	time.Sleep(1100 * time.Millisecond)

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestForeverOverridesDefaultTTL(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	d.SetOptions(drivers.Options{DefaultTTL: time.Second})

	require.NoError(t, d.Forever(ctx, "k", "v"))

	time.Sleep(1100 * time.Millisecond)

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestRemoveNamespace(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	require.NoError(t, d.Set(ctx, "user.profile", "X", 0))
	require.NoError(t, d.Set(ctx, "user.totals", "Y", 0))
	require.NoError(t, d.Set(ctx, "other.k", "Z", 0))

	require.NoError(t, d.RemoveNamespace(ctx, "user"))

	profile, err := d.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.Nil(t, profile)

	totals, err := d.Get(ctx, "user.totals")
	require.NoError(t, err)
	assert.Nil(t, totals)

	other, err := d.Get(ctx, "other.k")
	require.NoError(t, err)
	assert.Equal(t, "Z", other)
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	counter := newEventCounter()
	counter.watch(d, drivers.EventFlushed)

	require.NoError(t, d.Set(ctx, "a.b", 1, 0))
	require.NoError(t, d.Flush(ctx))

	value, err := d.Get(ctx, "a.b")
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, 1, counter.count(drivers.EventFlushed))
}

func TestHas(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	require.NoError(t, d.Set(ctx, "k", "v", 0))

	ok, err := d.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Has(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPull(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	require.NoError(t, d.Set(ctx, "k", "v", 0))

	value, err := d.Pull(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	value, err = d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestIncrementDecrement(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	value, err := d.Increment(ctx, "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), value)

	value, err = d.Increment(ctx, "counter", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)

	value, err = d.Decrement(ctx, "counter", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), value)
}

func TestIncrementTypeMismatch(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	require.NoError(t, d.Set(ctx, "k", "text", 0))

	_, err := d.Increment(ctx, "k", 1)
	require.Error(t, err)
	assert.True(t, cacheerrors.IsType(err, cacheerrors.ErrTypeTypeMismatch))

	// The stored value must be unchanged afterward.
	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "text", value)
}

func TestManyAndSetMany(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	require.NoError(t, d.SetMany(ctx, map[string]interface{}{
		"batch.a": 1,
		"batch.b": 2,
	}, 0))

	result, err := d.Many(ctx, []interface{}{"batch.a", "batch.b", "batch.absent"})
	require.NoError(t, err)
	assert.Equal(t, 1, result["batch.a"])
	assert.Equal(t, 2, result["batch.b"])
	assert.Nil(t, result["batch.absent"])
}

func TestRememberCachesProducerResult(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	var calls int32
	produce := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "produced", nil
	}

	value, err := d.Remember(ctx, "k", 0, produce)
	require.NoError(t, err)
	assert.Equal(t, "produced", value)

	value, err = d.Remember(ctx, "k", 0, produce)
	require.NoError(t, err)
	assert.Equal(t, "produced", value)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRememberStampedeGuard(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	const workers = 16

	var (
		calls int32
		ready sync.WaitGroup
		gate  = make(chan struct{})
	)

	produce := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return "expensive", nil
	}

	results := make([]interface{}, workers)
	errs := make([]error, workers)

	var done sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			results[i], errs[i] = d.Remember(ctx, "hot.key", 0, produce)
		}()
	}

	ready.Wait()
	time.Sleep(50 * time.Millisecond) // let every worker reach the lock table
	close(gate)
	done.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "expensive", results[i])
	}
}

func TestRememberProducerFailureRetries(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	boom := errors.New("backend down")
	var calls int32

	_, err := d.Remember(ctx, "k", 0, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	value, err := d.Remember(ctx, "k", 0, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBoundedSizeEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, &Config{MaxSize: 2})

	require.NoError(t, d.Set(ctx, "ns.a", 1, 0))
	require.NoError(t, d.Set(ctx, "ns.b", 2, 0))

	// Touch "a" so "b" becomes the eviction candidate.
	_, err := d.Get(ctx, "ns.a")
	require.NoError(t, err)

	require.NoError(t, d.Set(ctx, "ns.c", 3, 0))

	b, err := d.Get(ctx, "ns.b")
	require.NoError(t, err)
	assert.Nil(t, b)

	a, err := d.Get(ctx, "ns.a")
	require.NoError(t, err)
	assert.Equal(t, 1, a)

	c, err := d.Get(ctx, "ns.c")
	require.NoError(t, err)
	assert.Equal(t, 3, c)
}

func TestSlidingExpirationExtendsOnHit(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, &Config{Sliding: true})

	require.NoError(t, d.Set(ctx, "k", "v", time.Second))

	// Keep touching the entry past its original expiry.
	for i := 0; i < 3; i++ {
		time.Sleep(600 * time.Millisecond)
		value, err := d.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", value, "hit %d should slide the expiry", i)
	}

	// Without touches the entry finally expires.
	time.Sleep(1100 * time.Millisecond)
	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestLeafAndSubtreeCollisionClobbers(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	// A write under an existing leaf replaces the leaf with a subtree.
	require.NoError(t, d.Set(ctx, "user", "leaf", time.Hour))
	require.NoError(t, d.Set(ctx, "user.profile", "X", 0))

	value, err := d.Get(ctx, "user")
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = d.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.Equal(t, "X", value)

	// The clobbered leaf's expiry record goes with it.
	d.store.mu.Lock()
	_, tracked := d.store.expiry["user"]
	d.store.mu.Unlock()
	assert.False(t, tracked)

	// And a leaf write over an existing subtree discards the subtree.
	require.NoError(t, d.Set(ctx, "user", "leaf-again", 0))

	value, err = d.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = d.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "leaf-again", value)
}

func TestConcurrentGetsWithSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, &Config{Sliding: true})

	require.NoError(t, d.Set(ctx, "k", "v", time.Second))

	// Concurrent hits each rewrite the expiry; readers must never observe
	// the rewrite mid-flight.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				value, err := d.Get(ctx, "k")
				assert.NoError(t, err)
				assert.Equal(t, "v", value)
			}
		}()
	}
	wg.Wait()
}

func TestKeyPrefixFromOptions(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)
	d.SetOptions(drivers.Options{Prefix: "app"})

	require.NoError(t, d.Set(ctx, "k", "v", 0))
	assert.Equal(t, "app.k", d.ParseKey("k"))

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestPrefixFuncEvaluatedPerCall(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, nil)

	var current atomic.Value
	current.Store("one")
	d.SetOptions(drivers.Options{PrefixFunc: func() string { return current.Load().(string) }})

	require.NoError(t, d.Set(ctx, "k", "v", 0))

	current.Store("two")
	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value, "prefix change must address a different key")

	current.Store("one")
	value, err = d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}
