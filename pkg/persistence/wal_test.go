package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/crdtstore/pkg/config"
)

func TestWAL_AppendAndReadBack(t *testing.T) {
	defer config.WithWALEnabled()()

	dir := t.TempDir()
	cfg := DefaultWALConfig()
	cfg.Dir = dir
	cfg.SyncMode = "immediate"

	wal, err := NewWAL(dir, cfg)
	require.NoError(t, err)

	require.NoError(t, wal.AppendBlockUpdate("block-1", []byte("update-one")))
	require.NoError(t, wal.AppendBlockUpdate("block-2", []byte("update-two")))
	require.NoError(t, wal.Close())

	entries, err := ReadEntriesAfter(filepath.Join(dir, "wal.log"), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "block-1", entries[0].BlockID)
	assert.Equal(t, []byte("update-one"), entries[0].Data)
	assert.Equal(t, uint64(1), entries[0].Sequence)
}

func TestWAL_ReadEntriesAfterFiltersBySequence(t *testing.T) {
	defer config.WithWALEnabled()()

	dir := t.TempDir()
	cfg := DefaultWALConfig()
	cfg.Dir = dir
	cfg.SyncMode = "immediate"
	wal, err := NewWAL(dir, cfg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, wal.AppendBlockUpdate("b", []byte{byte(i)}))
	}
	require.NoError(t, wal.Close())

	entries, err := ReadEntriesAfter(filepath.Join(dir, "wal.log"), 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[0].Sequence)
}

func TestWAL_DisabledSkipsAppend(t *testing.T) {
	defer config.WithWALDisabled()()

	dir := t.TempDir()
	cfg := DefaultWALConfig()
	cfg.Dir = dir
	wal, err := NewWAL(dir, cfg)
	require.NoError(t, err)
	defer wal.Close()

	require.NoError(t, wal.AppendBlockUpdate("b", []byte("x")))
	assert.Equal(t, uint64(0), wal.Sequence())
}

func TestWAL_AppendAfterCloseErrors(t *testing.T) {
	defer config.WithWALEnabled()()

	dir := t.TempDir()
	wal, err := NewWAL(dir, DefaultWALConfig())
	require.NoError(t, err)
	require.NoError(t, wal.Close())

	err = wal.AppendBlockUpdate("b", []byte("x"))
	assert.ErrorIs(t, err, ErrWALClosed)
}

func TestWAL_ResumesSequenceAcrossReopen(t *testing.T) {
	defer config.WithWALEnabled()()

	dir := t.TempDir()
	cfg := DefaultWALConfig()
	cfg.Dir = dir
	cfg.SyncMode = "immediate"

	wal, err := NewWAL(dir, cfg)
	require.NoError(t, err)
	require.NoError(t, wal.AppendBlockUpdate("b", []byte("x")))
	require.NoError(t, wal.Close())

	reopened, err := NewWAL(dir, cfg)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, uint64(1), reopened.Sequence())
}
