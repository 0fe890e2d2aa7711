package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheerrors "cache-manager/internal/common/errors"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()

	d, err := NewDriver(&Config{Path: filepath.Join(t.TempDir(), "cache.db")})
	require.NoError(t, err)
	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Disconnect(context.Background()) })

	return d
}

func TestMissingPathIsConfigError(t *testing.T) {
	_, err := NewDriver(&Config{})
	require.Error(t, err)
	assert.True(t, cacheerrors.IsType(err, cacheerrors.ErrTypeConfig))
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "user.profile", map[string]interface{}{"name": "ada"}, 0))

	value, err := d.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "ada"}, value)
}

func TestReplaceOnSet(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "k", "first", 0))
	require.NoError(t, d.Set(ctx, "k", "second", 0))

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestExpiredRecordIsRemovedOnRead(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "k", "v", time.Second))
	time.Sleep(1100 * time.Millisecond)

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)

	// The row is deleted, not just masked.
	var count int
	row := d.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 0, count)
}

func TestDeleteByNamespaceFilter(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "user.profile", "X", 0))
	require.NoError(t, d.Set(ctx, "user.totals", "Y", 0))
	require.NoError(t, d.Set(ctx, "username.k", "Z", 0))

	require.NoError(t, d.RemoveNamespace(ctx, "user"))

	for _, key := range []string{"user.profile", "user.totals"} {
		value, err := d.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, value)
	}

	// A key whose namespace merely shares the prefix is untouched.
	value, err := d.Get(ctx, "username.k")
	require.NoError(t, err)
	assert.Equal(t, "Z", value)
}

func TestValueSurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := NewDriver(&Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Connect(ctx))
	require.NoError(t, first.Set(ctx, "k", "v", 0))
	require.NoError(t, first.Disconnect(ctx))

	second, err := NewDriver(&Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, second.Connect(ctx))
	defer second.Disconnect(ctx)

	value, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestFlushClearsTable(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "a", 1, 0))
	require.NoError(t, d.Flush(ctx))

	value, err := d.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, value)
}
