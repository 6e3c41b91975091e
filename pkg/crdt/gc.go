package crdt

// gcAndMerge is the per-block tail of the cleanup pipeline: adjacent
// mergeable structs in each client's vector are folded together, and
// deleted items that aren't pinned (Keep) have their content reclaimed
// into a GC marker.
func gcAndMerge(block *Block, tr *Transaction) {
	for client, vec := range block.Struct.Clients {
		vec = mergeAdjacent(vec)
		block.Struct.Clients[client] = vec
		if block.GC {
			reclaimDeleted(block, vec)
		}
	}
}

// mergeAdjacent folds neighbouring Items in vec into one another wherever
// their ids are contiguous, both share the same deleted state, neither is
// kept, they share parent and parent key, they are linked neighbours, and
// their Content reports mergeable.
func mergeAdjacent(vec []Struct) []Struct {
	if len(vec) < 2 {
		return vec
	}
	out := make([]Struct, 0, len(vec))
	out = append(out, vec[0])
	for _, st := range vec[1:] {
		prev := out[len(out)-1]
		if tryMerge(prev, st) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func tryMerge(prev, next Struct) bool {
	pItem, pOK := prev.(*Item)
	nItem, nOK := next.(*Item)
	if !pOK || !nOK {
		return false
	}
	if pItem.Deleted != nItem.Deleted || pItem.Keep || nItem.Keep {
		return false
	}
	if pItem.ID.Client != nItem.ID.Client {
		return false
	}
	if pItem.ID.Clock+pItem.StructLength() != nItem.ID.Clock {
		return false
	}
	if pItem.Parent.Type != nItem.Parent.Type || pItem.ParentSub != nItem.ParentSub {
		return false
	}
	if pItem.Right != nItem {
		return false
	}
	if !pItem.Content.MergeWith(nItem.Content) {
		return false
	}
	pItem.Right = nItem.Right
	if nItem.Right != nil {
		nItem.Right.Left = pItem
	}
	return true
}

// reclaimDeleted replaces each deleted, unkept Item's content with a GC
// marker once its content has released whatever resources it held.
func reclaimDeleted(block *Block, vec []Struct) {
	for i, st := range vec {
		item, ok := st.(*Item)
		if !ok || !item.Deleted || item.Keep {
			continue
		}
		if block.GCFilter != nil && !block.GCFilter(item) {
			continue
		}
		item.Content.GC(block.Struct)
		vec[i] = &GC{ID: item.ID, Len: item.StructLength()}
	}
}
