package crdt

import "fmt"

// resolveRefConflict implements the local ref-conflict rule: a Block
// accepts at most one referrer. When a second local Ref targets
// an already-referred block, the loser doesn't get the original block —
// it gets integrated against a clone instead, so both referrers end up
// with a valid, distinct target and neither silently loses its edit.
//
// The loser is corrected in place (re-pointed at a clone) rather than
// the operation being rejected outright.
func resolveRefConflict(st *StoreTransaction, c *ContentBlockRef) {
	if st == nil {
		return
	}
	original := st.Store.GetOrCreateBlock(c.BlockID, c.BlockType)
	clone := cloneBlock(st, original)

	c.block = clone
	c.typ = clone.RootType()
	c.BlockID = clone.ID
	clone.Referrer = c.item
}

// cloneBlock materializes a fresh block holding a snapshot of original's
// live content, registered under a derived id so it's addressable like
// any other block.
func cloneBlock(st *StoreTransaction, original *Block) *Block {
	clientID := st.Store.ClientID
	cloneID := fmt.Sprintf("%s~%d.%d", original.ID, clientID, original.Struct.GetState(clientID))
	nb := original.Clone(cloneID)
	nb.owner = st.Store
	st.Store.Blocks[cloneID] = nb
	st.BlocksAdded = append(st.BlocksAdded, nb)
	return nb
}

// validateCircularRef walks the referrer chain upward from item's owning
// block, undoing the just-made ref if it discovers a cycle (no block may
// transitively refer to itself).
func validateCircularRef(tr *Transaction, item *Item) {
	ref, ok := item.Content.(*ContentBlockRef)
	if !ok || ref.block == nil {
		return
	}
	seen := make(map[*Block]bool)
	cur := item.Block
	for cur != nil && !seen[cur] {
		if cur == ref.block {
			breakCircularRef(tr, item, ref)
			return
		}
		seen[cur] = true
		if cur.Referrer == nil {
			return
		}
		cur = cur.Referrer.Block
	}
}

// breakCircularRef deletes the item that would have closed a ref cycle,
// restoring the target block to referrer-less.
func breakCircularRef(tr *Transaction, item *Item, ref *ContentBlockRef) {
	if ref.block != nil && ref.block.Referrer == item {
		ref.block.Referrer = nil
	}
	tr.deleteItem(item)
}

// resolveBlockRefs is the store-cleanup step that settles remote ref
// conflicts: remote Refs integrate without immediately deciding conflicts
// (to avoid clients diverging on who "saw" the conflict first); this
// pass, run once per outermost transact call, settles every target block
// with pending Refs queued against it this transaction.
//
// The policy is asymmetric by locality. If the refs added this
// transaction are the only contenders for target (no referrer, or the
// referrer already belongs to one of them — installed inline during
// local Integrate), the greatest-id ref wins and the rest are cloned
// away as usual. If a referrer installed by an earlier transaction is
// still in the way, who loses depends on whether this transaction is
// local or remote: a local transaction's new refs lose outright to the
// untouched pre-existing referrer; a remote transaction's new ref wins
// instead, and the pre-existing referrer is the one cleared and cloned
// away.
func resolveBlockRefs(st *StoreTransaction) {
	byTarget := make(map[*Block][]*ContentBlockRef)
	for _, c := range st.BlockRefsAdded {
		if c.block == nil || c.item == nil {
			continue
		}
		byTarget[c.block] = append(byTarget[c.block], c)
	}
	for target, refs := range byTarget {
		var winner *ContentBlockRef
		for _, c := range refs {
			if winner == nil || c.item.ID.GreaterForConflict(winner.item.ID) {
				winner = c
			}
		}

		if target.Referrer != nil && !refsContainItem(refs, target.Referrer) {
			if st.Local {
				for _, c := range refs {
					resolveRefConflict(st, c)
				}
				continue
			}
			if oldRef, ok := target.Referrer.Content.(*ContentBlockRef); ok {
				resolveRefConflict(st, oldRef)
			}
			target.PrevReferrer = target.Referrer
			target.Referrer = nil
		}

		if target.Referrer == nil {
			target.Referrer = winner.item
		}
		for _, c := range refs {
			if c != winner {
				resolveRefConflict(st, c)
			}
		}
	}
}

func refsContainItem(refs []*ContentBlockRef, item *Item) bool {
	for _, c := range refs {
		if c.item == item {
			return true
		}
	}
	return false
}

// InsertRef inserts a Ref to target's root type at index in a sequence
// container. Refs may only target non-root blocks: a root block is
// always directly addressable by name, so embedding one as a Ref target
// would let it be reached two incompatible ways.
func (t *AbstractType) InsertRef(tr *Transaction, index int, target *Block) (*Item, error) {
	if target.IsRoot {
		return nil, ErrRefRoot
	}
	return t.Insert(tr, index, &ContentBlockRef{BlockID: target.ID, BlockType: target.DocType}), nil
}

// SetRef assigns a Map key to a Ref targeting target's root type.
func (t *AbstractType) SetRef(tr *Transaction, key string, target *Block) (*Item, error) {
	if target.IsRoot {
		return nil, ErrRefRoot
	}
	return t.Set(tr, key, &ContentBlockRef{BlockID: target.ID, BlockType: target.DocType}), nil
}

// emitUnref appends a genuine Unref item to owningBlock's internal
// "_unrefs" array and emits an "unref" bus event so local observers
// can react immediately, before the Unref content type ever reaches a
// peer. This only ever fires for local deletes — a remote-driven
// referrer change during resolveBlockRefs does not re-emit it.
func emitUnref(tr *Transaction, owningBlock *Block, unreffedBlockID string, refItemID ID) {
	unrefs := owningBlock.UnrefsType()
	unrefs.Insert(tr, unrefs.Length(), &ContentBlockUnref{
		BlockID:   unreffedBlockID,
		RefClient: refItemID.Client,
		RefClock:  refItemID.Clock,
	})
	owningBlock.Emit("unref", refItemID)
}
