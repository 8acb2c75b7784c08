package relay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgwatch/relay/internal/logger"
)

func TestStore_AcquireCreatesIsolatedDirs(t *testing.T) {
	store, err := NewStore(t.TempDir(), logger.Get())
	require.NoError(t, err)

	a, releaseA, err := store.Acquire()
	require.NoError(t, err)
	defer releaseA()

	b, releaseB, err := store.Acquire()
	require.NoError(t, err)
	defer releaseB()

	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.DirExists(t, b)
}

func TestStore_PurgeSkipsInFlight(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root, logger.Get())
	require.NoError(t, err)

	busy, release, err := store.Acquire()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(busy, "photo.jpg"), []byte("x"), 0644))

	stale, releaseStale, err := store.Acquire()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stale, "old.jpg"), []byte("y"), 0644))
	releaseStale()

	removed, err := store.Purge()
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.DirExists(t, busy, "in-flight relay dir must survive the purge")
	assert.NoDirExists(t, stale)

	release()
	removed, err = store.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "released dir is reclaimed on the next purge")
}

func TestStore_PurgeEmptyRoot(t *testing.T) {
	store, err := NewStore(t.TempDir(), logger.Get())
	require.NoError(t, err)

	removed, err := store.Purge()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
