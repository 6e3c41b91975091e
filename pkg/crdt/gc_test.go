package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGC_MergeAdjacentTextItems(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("doc", DocText, true)

	block.Transact(func(tr *Transaction) {
		block.RootType().InsertText(tr, 0, "a")
		block.RootType().InsertText(tr, 1, "b")
		block.RootType().InsertText(tr, 2, "c")
	}, nil)

	vec := block.Struct.Clients[1]
	require.Len(t, vec, 1, "three contiguous same-client inserts should merge into one struct")
	assert.Equal(t, "abc", vec[0].(*Item).Content.(*ContentString).Str)
}

func TestGC_ReclaimsDeletedUnkeptItems(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("arr", DocArray, true)
	var it *Item

	block.Transact(func(tr *Transaction) {
		it = block.RootType().Insert(tr, 0, &ContentEmbed{Value: "x"})
	}, nil)

	block.Transact(func(tr *Transaction) {
		tr.deleteItem(it)
	}, nil)

	vec := block.Struct.Clients[1]
	require.Len(t, vec, 1)
	_, isGC := vec[0].(*GC)
	assert.True(t, isGC, "deleted unkept item should be reclaimed into a GC marker")
}

func TestGC_KeepItemsSurviveGC(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("arr", DocArray, true)
	var it *Item

	block.Transact(func(tr *Transaction) {
		it = block.RootType().Insert(tr, 0, &ContentBlockUnref{BlockID: "x"})
	}, nil)
	require.True(t, it.Keep, "Unref content always sets Keep")

	block.Transact(func(tr *Transaction) {
		tr.deleteItem(it)
	}, nil)

	vec := block.Struct.Clients[1]
	require.Len(t, vec, 1)
	_, isGC := vec[0].(*GC)
	assert.False(t, isGC, "Keep items must never be reclaimed by GC")
}

func TestGC_GCFilterBlocksReclaim(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("arr", DocArray, true)
	block.GCFilter = func(it *Item) bool { return false }
	var it *Item

	block.Transact(func(tr *Transaction) {
		it = block.RootType().Insert(tr, 0, &ContentEmbed{Value: "x"})
	}, nil)

	block.Transact(func(tr *Transaction) {
		tr.deleteItem(it)
	}, nil)

	vec := block.Struct.Clients[1]
	require.Len(t, vec, 1)
	_, isGC := vec[0].(*GC)
	assert.False(t, isGC)
}
