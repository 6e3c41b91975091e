package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_ConcurrentSameSlotInsertConvergesOnGreatestID(t *testing.T) {
	// Two replicas concurrently insert at the same (nil, nil) slot of an
	// empty sequence. Whichever order the two inserts integrate in, the
	// greater id must end up leftmost.
	build := func(first, second *Item) *AbstractType {
		typ := newAbstractType(DocArray)
		block := NewBlock("b", DocArray)
		block.root = typ
		typ.Block = block
		integrateSequenceItem(typ, first)
		integrateSequenceItem(typ, second)
		return typ
	}

	low := &Item{ID: ID{Client: 1, Clock: 0}, Content: &ContentEmbed{Value: "low"}, Countable: true}
	high := &Item{ID: ID{Client: 2, Clock: 0}, Content: &ContentEmbed{Value: "high"}, Countable: true}

	a := build(low, high)
	b := build(high, low)

	assert.Equal(t, "high", a.Start.Content.(*ContentEmbed).Value)
	assert.Equal(t, "high", b.Start.Content.(*ContentEmbed).Value)
}

func TestItem_IntegrateLinksNeighbours(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("arr", DocArray, true)
	var first, second *Item

	block.Transact(func(tr *Transaction) {
		first = block.RootType().Insert(tr, 0, &ContentEmbed{Value: "a"})
		second = block.RootType().Insert(tr, 1, &ContentEmbed{Value: "b"})
	}, nil)

	require.Same(t, second, first.Right)
	require.Same(t, first, second.Left)
}

func TestItem_StructLengthUsesContentLength(t *testing.T) {
	it := &Item{ID: ID{Client: 1, Clock: 0}, Content: &ContentString{Str: "abc"}}
	assert.EqualValues(t, 3, it.StructLength())
}
