package cache

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*badger.DB, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable logging for tests

	db, err := badger.Open(opts)
	require.NoError(t, err)

	return db, func() { db.Close() }
}

func testKey() Key {
	return Key{
		Algorithm: "sha256",
		Limit:     4096,
		Path:      "/data/a.txt",
		Size:      5,
		ModTime:   time.Unix(100, 0),
	}
}

func TestCache(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	c, err := New(db, 16, nil)
	require.NoError(t, err)

	t.Run("miss on empty", func(t *testing.T) {
		_, ok := c.Get(testKey())
		assert.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, c.Put(testKey(), "abc123"))
		got, ok := c.Get(testKey())
		require.True(t, ok)
		assert.Equal(t, "abc123", got)
	})

	t.Run("changed metadata misses", func(t *testing.T) {
		k := testKey()
		k.ModTime = k.ModTime.Add(time.Second)
		_, ok := c.Get(k)
		assert.False(t, ok)

		k = testKey()
		k.Size = 6
		_, ok = c.Get(k)
		assert.False(t, ok)
	})

	t.Run("levels and algorithms are distinct", func(t *testing.T) {
		k := testKey()
		k.Limit = -1
		_, ok := c.Get(k)
		assert.False(t, ok)

		k = testKey()
		k.Algorithm = "md5"
		_, ok = c.Get(k)
		assert.False(t, ok)
	})

	t.Run("served from badger after lru purge", func(t *testing.T) {
		c.front.Purge()
		got, ok := c.Get(testKey())
		require.True(t, ok)
		assert.Equal(t, "abc123", got)
	})

	t.Run("len and clear", func(t *testing.T) {
		k := testKey()
		k.Path = "/data/b.txt"
		require.NoError(t, c.Put(k, "def456"))

		n, err := c.Len()
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, c.Clear())
		n, err = c.Len()
		require.NoError(t, err)
		assert.Zero(t, n)

		_, ok := c.Get(testKey())
		assert.False(t, ok)
	})

	stats := c.Stats()
	assert.Positive(t, stats.Hits)
	assert.Positive(t, stats.Misses)
	assert.EqualValues(t, 2, stats.Writes)
	assert.NoError(t, c.Close())
}

func TestOpenPersists(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c.Put(testKey(), "persisted"))
	require.NoError(t, c.Close())

	c, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer c.Close()

	got, ok := c.Get(testKey())
	require.True(t, ok)
	assert.Equal(t, "persisted", got)
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}
