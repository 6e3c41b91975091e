package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefs_InsertRefRejectsRootTarget(t *testing.T) {
	store := NewStore(1)
	a := store.CreateBlock("a", DocArray, true)
	root := store.CreateBlock("root", DocMap, true)

	var err error
	a.Transact(func(tr *Transaction) {
		_, err = a.RootType().InsertRef(tr, 0, root)
	}, nil)
	assert.ErrorIs(t, err, ErrRefRoot)
}

func TestRefs_LocalConflictResolvesViaClone(t *testing.T) {
	store := NewStore(1)
	container1 := store.CreateBlock("c1", DocArray, true)
	container2 := store.CreateBlock("c2", DocArray, true)
	target := store.CreateBlock("target", DocText, false)

	var refA *Item
	container1.Transact(func(tr *Transaction) {
		refA, _ = container1.RootType().InsertRef(tr, 0, target)
	}, nil)
	require.NotNil(t, refA)
	assert.Equal(t, refA, target.Referrer)

	var refB *Item
	container2.Transact(func(tr *Transaction) {
		refB, _ = container2.RootType().InsertRef(tr, 0, target)
	}, nil)
	require.NotNil(t, refB)

	// Second referrer must not have stolen the original target; the
	// original's referrer stays intact.
	assert.Equal(t, refA, target.Referrer)

	cb := refB.Content.(*ContentBlockRef)
	assert.NotSame(t, target, cb.block, "loser should be re-pointed at a clone, not the original")
	assert.Equal(t, refB, cb.block.Referrer)
	assert.Equal(t, cb.block.ID, cb.BlockID, "wire BlockID must follow the clone, not the original target")
}

func TestRefs_UnrefEmittedOnlyOnLocalDelete(t *testing.T) {
	store := NewStore(1)
	container := store.CreateBlock("c", DocArray, true)
	target := store.CreateBlock("target", DocText, false)

	var refItem *Item
	container.Transact(func(tr *Transaction) {
		refItem, _ = container.RootType().InsertRef(tr, 0, target)
	}, nil)

	var unrefFired bool
	container.On("unref", func(any) { unrefFired = true })

	container.Transact(func(tr *Transaction) {
		tr.deleteItem(refItem)
	}, nil)

	assert.True(t, unrefFired)
}

func TestRefs_UnrefNotEmittedOnRemoteDelete(t *testing.T) {
	store := NewStore(1)
	container := store.CreateBlock("c", DocArray, true)
	target := store.CreateBlock("target", DocText, false)

	var refItem *Item
	container.Transact(func(tr *Transaction) {
		refItem, _ = container.RootType().InsertRef(tr, 0, target)
	}, nil)

	var unrefFired bool
	container.On("unref", func(any) { unrefFired = true })

	container.owner.transactOnBlock(container, func(tr *Transaction) {
		tr.Local = false
		tr.StoreTransaction.Local = false
		tr.deleteItem(refItem)
	}, nil)

	assert.False(t, unrefFired)
}

func TestRefs_RemoteRefWinsAgainstEarlierReferrer(t *testing.T) {
	store := NewStore(1)
	container1 := store.CreateBlock("c1", DocArray, true)
	container2 := store.CreateBlock("c2", DocArray, true)
	target := store.CreateBlock("target", DocText, false)

	var refA *Item
	container1.Transact(func(tr *Transaction) {
		refA, _ = container1.RootType().InsertRef(tr, 0, target)
	}, nil)
	require.NotNil(t, refA)
	require.Equal(t, refA, target.Referrer, "first transaction's ref must install as referrer")

	var refB *Item
	store.transactOnBlock(container2, func(tr *Transaction) {
		tr.Local = false
		tr.StoreTransaction.Local = false
		refB, _ = container2.RootType().InsertRef(tr, 0, target)
	}, nil)
	require.NotNil(t, refB)

	assert.Equal(t, refB, target.Referrer, "remote ref must win over the pre-existing referrer")
	assert.Equal(t, refA, target.PrevReferrer)

	ca := refA.Content.(*ContentBlockRef)
	assert.NotSame(t, target, ca.block, "displaced earlier referrer must be re-pointed at a clone")
	assert.Equal(t, refA, ca.block.Referrer)
	assert.Equal(t, ca.block.ID, ca.BlockID, "wire BlockID must follow the clone")

	cb := refB.Content.(*ContentBlockRef)
	assert.Same(t, target, cb.block, "winning remote ref keeps the original target")
}

func TestRefs_CircularRefBroken(t *testing.T) {
	store := NewStore(1)
	a := store.CreateBlock("a", DocArray, false)
	b := store.CreateBlock("b", DocArray, false)

	var refAtoB *Item
	a.Transact(func(tr *Transaction) {
		refAtoB, _ = a.RootType().InsertRef(tr, 0, b)
	}, nil)
	require.NotNil(t, refAtoB)
	require.Equal(t, refAtoB, b.Referrer)

	// b -> a would close a two-block cycle; integration must undo it.
	var refBtoA *Item
	b.Transact(func(tr *Transaction) {
		refBtoA, _ = b.RootType().InsertRef(tr, 0, a)
	}, nil)
	require.NotNil(t, refBtoA)

	assert.True(t, refBtoA.Deleted, "the closing ref must be deleted to break the cycle")
}
