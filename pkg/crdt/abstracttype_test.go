package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbstractType_TextConvergence(t *testing.T) {
	// Two concurrent Insert(0, ...) at the same slot on replicas with
	// different client ids must converge to the same order everywhere:
	// greatest client id wins the leftmost position.
	s1 := NewStore(1)
	b1 := s1.CreateBlock("doc", DocText, true)
	s2 := NewStore(2)
	b2 := s2.CreateBlock("doc", DocText, true)

	b1.Transact(func(tr *Transaction) {
		b1.RootType().InsertText(tr, 0, "abc")
	}, nil)
	b2.Transact(func(tr *Transaction) {
		b2.RootType().InsertText(tr, 0, "XYZ")
	}, nil)

	u1, err := EncodeStateAsUpdateV2(b1)
	require.NoError(t, err)
	u2, err := EncodeStateAsUpdateV2(b2)
	require.NoError(t, err)
	require.NoError(t, ApplyUpdateV2(b1, u2, nil))
	require.NoError(t, ApplyUpdateV2(b2, u1, nil))

	assert.Equal(t, "XYZabc", b1.RootType().ToText())
	assert.Equal(t, "XYZabc", b2.RootType().ToText())
}

func TestAbstractType_InsertAndDelete(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("arr", DocArray, true)
	var items []*Item

	block.Transact(func(tr *Transaction) {
		items = append(items, block.RootType().Insert(tr, 0, &ContentEmbed{Value: "x"}))
		items = append(items, block.RootType().Insert(tr, 1, &ContentEmbed{Value: "y"}))
	}, nil)

	require.Len(t, block.RootType().ToSlice(), 2)

	block.Transact(func(tr *Transaction) {
		block.RootType().Delete(tr, 0, 1)
	}, nil)

	out := block.RootType().ToSlice()
	require.Len(t, out, 1)
	assert.Equal(t, "y", out[0])
}

func TestAbstractType_MapSetAndGet(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("m", DocMap, true)

	block.Transact(func(tr *Transaction) {
		block.RootType().Set(tr, "key", &ContentEmbed{Value: 42})
	}, nil)

	got := block.RootType().Get("key")
	require.NotNil(t, got)
	assert.Equal(t, 42, got.Content.(*ContentEmbed).Value)

	block.Transact(func(tr *Transaction) {
		block.RootType().RemoveKey(tr, "key")
	}, nil)
	assert.Nil(t, block.RootType().Get("key"))
}

func TestAbstractType_MapConcurrentSetConverges(t *testing.T) {
	// Greatest id wins the visible head regardless of integration order.
	typ := newAbstractType(DocMap)
	typ.Block = NewBlock("b", DocMap)
	typ.Block.root = typ

	low := &Item{ID: ID{Client: 1, Clock: 0}, Content: &ContentEmbed{Value: "low"}, Countable: false, ParentSub: strPtr("k"), Parent: ParentRef{Type: typ}}
	high := &Item{ID: ID{Client: 2, Clock: 0}, Content: &ContentEmbed{Value: "high"}, Countable: false, ParentSub: strPtr("k"), Parent: ParentRef{Type: typ}}

	integrateMapItem(typ, low)
	integrateMapItem(typ, high)
	assert.Equal(t, "high", typ.MapHeads["k"].Content.(*ContentEmbed).Value)

	// Reverse integration order — same result.
	typ2 := newAbstractType(DocMap)
	integrateMapItem(typ2, high)
	integrateMapItem(typ2, low)
	assert.Equal(t, "high", typ2.MapHeads["k"].Content.(*ContentEmbed).Value)
}

func strPtr(s string) *string { return &s }
