package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheerrors "cache-manager/internal/common/errors"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()

	d, err := NewDriver(&Config{Directory: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Disconnect(context.Background()) })

	return d
}

func TestMissingDirectoryIsConfigError(t *testing.T) {
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

func TestValueSurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewDriver(&Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, first.Connect(ctx))
	require.NoError(t, first.Set(ctx, "k", "v", 0))
	require.NoError(t, first.Disconnect(ctx))

	second, err := NewDriver(&Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, second.Connect(ctx))
	defer second.Disconnect(ctx)

	value, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestExpiredDocumentIsRemovedOnRead(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "k", "v", time.Second))
	time.Sleep(1100 * time.Millisecond)

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)

	// The stale document itself is gone.
	entries, err := os.ReadDir(d.store.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorruptDocumentIsTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, os.WriteFile(filepath.Join(d.store.dir, "k.json"), []byte("{not json"), 0o644))

	value, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestRemoveNamespace(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "user.profile", "X", 0))
	require.NoError(t, d.Set(ctx, "user.totals", "Y", 0))
	require.NoError(t, d.Set(ctx, "other.k", "Z", 0))

	require.NoError(t, d.RemoveNamespace(ctx, "user"))

	for _, key := range []string{"user.profile", "user.totals"} {
		value, err := d.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, value)
	}

	value, err := d.Get(ctx, "other.k")
	require.NoError(t, err)
	assert.Equal(t, "Z", value)
}

func TestFlushRecreatesDirectory(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Set(ctx, "a", 1, 0))
	require.NoError(t, d.Flush(ctx))

	value, err := d.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, value)

	// The directory stays usable after a flush.
	require.NoError(t, d.Set(ctx, "b", "v", 0))
	value, err = d.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}
