package simulation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/upsideon/orquestra-quantum/internal/testing"
)

func newTestCache(t *testing.T) (*ResultCache, func()) {
	t.Helper()

	db, cleanup := testdb.NewTestDB(t, "cache")
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewResultCache(db.Conn(), log), cleanup
}

func TestCache_PutAndGet(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	amplitudes := []complex128{complex(0.6, 0), complex(0, 0.8)}
	cache.Put("key-1", amplitudes)

	got, ok := cache.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, amplitudes, got)
}

func TestCache_MissingKey(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	_, ok := cache.Get("absent")
	assert.False(t, ok)
}

func TestCache_PutReplaces(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	cache.Put("key-1", []complex128{1, 0})
	cache.Put("key-1", []complex128{0, 1})

	got, ok := cache.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, []complex128{0, 1}, got)
}

func TestCache_KeyIsStableAndDistinct(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	bell := testdb.NewBellCircuit()

	key1, err := cache.Key(bell)
	require.NoError(t, err)
	key2, err := cache.Key(testdb.NewBellCircuit())
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	other, err := cache.Key(testdb.NewGHZCircuit(3))
	require.NoError(t, err)
	assert.NotEqual(t, key1, other)
}

func TestCache_Prune(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	cache.Put("old", []complex128{1})
	cache.Put("new", []complex128{1})

	// Age one entry well past the cutoff.
	_, err := cache.db.Exec(
		"UPDATE simulation_results SET created_at = ? WHERE cache_key = ?",
		time.Now().Add(-48*time.Hour).Unix(), "old",
	)
	require.NoError(t, err)

	pruned, err := cache.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, ok := cache.Get("old")
	assert.False(t, ok)
	_, ok = cache.Get("new")
	assert.True(t, ok)
}
