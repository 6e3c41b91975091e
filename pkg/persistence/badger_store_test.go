package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore_SaveAndLoadBlockSnapshot(t *testing.T) {
	store, err := NewBadgerStoreInMemory()
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.LoadBlockSnapshot("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveBlockSnapshot("b1", []byte("snapshot-bytes")))
	data, ok, err := store.LoadBlockSnapshot("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("snapshot-bytes"), data)

	require.NoError(t, store.SaveBlockSnapshot("b1", []byte("newer")))
	data, ok, err = store.LoadBlockSnapshot("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("newer"), data)
}

func TestBadgerStore_SaveAndLoadRoot(t *testing.T) {
	store, err := NewBadgerStoreInMemory()
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.LoadRoot("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveRoot("config", "block-123"))
	id, ok, err := store.LoadRoot("config")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "block-123", id)
}

func TestBadgerStore_AllRoots(t *testing.T) {
	store, err := NewBadgerStoreInMemory()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRoot("a", "block-a"))
	require.NoError(t, store.SaveRoot("b", "block-b"))
	require.NoError(t, store.SaveBlockSnapshot("block-a", []byte("x")))

	roots, err := store.AllRoots()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "block-a", "b": "block-b"}, roots)
}
