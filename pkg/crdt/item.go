package crdt

// ParentRef names an Item's parent: either a resolved AbstractType, or (for
// an Item decoded from a remote update before its parent type is known) a
// pending block/root reference that integration must resolve first.
type ParentRef struct {
	Type *AbstractType
	// Pending is set instead of Type when the parent hasn't been
	// resolved yet (decoded from an update whose parent is named by id
	// or root name rather than a live pointer).
	Pending string
}

// Item is the atomic CRDT operation. Once integrated, left.Right == this
// and right.Left == this; an Item is deleted iff its Deleted flag is set,
// and the deleting transaction records its range in that Transaction's
// DeleteSet.
type Item struct {
	ID          ID
	LeftOrigin  *ID
	RightOrigin *ID
	Left        *Item
	Right       *Item

	Parent    ParentRef
	ParentSub *string // map key, nil for sequence position

	Content Content

	Deleted   bool
	Keep      bool
	Countable bool

	Block *Block // the Block whose StructStore owns this Item
}

// StructID / StructLength / IsDeleted implement the Struct interface so an
// Item can live directly in a StructStore's per-client vector alongside
// GC and Skip.
func (it *Item) StructID() ID         { return it.ID }
func (it *Item) StructLength() uint32 {
	if it.Content == nil {
		return 1
	}
	return uint32(it.Content.Length())
}
func (it *Item) IsDeleted() bool { return it.Deleted }

// Integrate resolves neighbours, splices into the parent, updates parent
// bookkeeping, runs content-specific integration, and records the change
// for observer dispatch.
func (it *Item) Integrate(tr *Transaction) {
	parent := it.Parent.Type
	if parent == nil {
		// Pending parent (decoded update) must be resolved by the
		// caller (ApplyUpdateV2) before Integrate is called.
		return
	}

	if parent.Kind.isSequence() && it.ParentSub == nil {
		integrateSequenceItem(parent, it)
	} else {
		integrateMapItem(parent, it)
	}

	if it.Countable && !it.Deleted {
		if parent.Kind.isSequence() && it.ParentSub == nil {
			parent.SeqLength += it.StructLength()
		}
	}

	it.Content.Integrate(tr, it)

	tr.markChanged(parent, it.ParentSub)
}

// integrateSequenceItem splices it into parent's linked sequence,
// resolving the insertion point: among items claiming the same
// (leftOrigin, rightOrigin) slot, the greatest id wins the leftmost
// position among them (the stated base-CRDT tie-break).
//
// Full transitive YATA-style conflict resolution across non-sibling
// concurrent inserts is treated as an external base-CRDT collaborator
// here; what's implemented is the literal same-slot tie-break rule, which
// is sufficient to make same-slot concurrent inserts converge
// deterministically.
func integrateSequenceItem(parent *AbstractType, it *Item) {
	left := resolveOriginItem(parent, it.LeftOrigin)
	right := resolveOriginItem(parent, it.RightOrigin)

	scan := nextInSequence(parent, left)
	for scan != nil && scan != right {
		if IDPtrEqual(scan.LeftOrigin, it.LeftOrigin) && IDPtrEqual(scan.RightOrigin, it.RightOrigin) {
			if scan.ID.GreaterForConflict(it.ID) {
				left = scan
			} else {
				break
			}
		}
		scan = scan.Right
	}

	it.Left = left
	if left == nil {
		it.Right = parent.Start
		parent.Start = it
	} else {
		it.Right = left.Right
		left.Right = it
	}
	if it.Right != nil {
		it.Right.Left = it
	}
}

func resolveOriginItem(parent *AbstractType, origin *ID) *Item {
	if origin == nil {
		return nil
	}
	if parent.Block == nil {
		return nil
	}
	item, _ := parent.Block.Struct.FindItem(*origin)
	return item
}

func nextInSequence(parent *AbstractType, after *Item) *Item {
	if after == nil {
		return parent.Start
	}
	return after.Right
}

// integrateMapItem overwrites (or chains behind) the existing head for
// it.ParentSub, keeping the item with the greatest id as the visible head
// regardless of integration order (so remote updates applied out of
// order still converge).
func integrateMapItem(parent *AbstractType, it *Item) {
	key := ""
	if it.ParentSub != nil {
		key = *it.ParentSub
	}
	if parent.MapHeads == nil {
		parent.MapHeads = make(map[string]*Item)
	}
	existing, ok := parent.MapHeads[key]
	if !ok || it.ID.GreaterForConflict(existing.ID) {
		it.Left = existing
		parent.MapHeads[key] = it
	} else {
		it.Left = existing
	}
}
