package crdt

import "log"

// Block is one independent CRDT document. A Block may be a root block
// (directly addressable by name in its owning Store) or an embedded block
// reachable only by following a Ref from some other Block's item (at
// most one referrer).
type Block struct {
	ID       string
	DocType  DocType
	IsRoot   bool
	ClientID uint32

	// Struct is this block's own append-only operation log (distinct
	// from the package-level Store type, hence the field name rather
	// than an embedded StructStore to avoid a naming collision with the
	// owning Store).
	Struct *StructStore

	root *AbstractType // the block's single root-level container

	// unrefs backs the block's internal "_unrefs" named array: a non-root
	// type, alongside root, that accumulates an Unref item for every local
	// deletion of a Ref that used to target this block. Lazily created
	// since most blocks never lose a referrer.
	unrefs *AbstractType

	// Referrer/PrevReferrer implement the "at most one referrer"
	// invariant. PrevReferrer is kept only for observers that need to
	// know who last held the ref after it's cleared.
	Referrer     *Item
	PrevReferrer *Item

	GC       bool
	GCFilter func(*Item) bool

	owner *Store

	Bus
}

// NewBlock constructs a standalone block not yet attached to any Store.
// Most callers should use Store.CreateBlock instead.
func NewBlock(id string, docType DocType) *Block {
	b := &Block{
		ID:      id,
		DocType: docType,
		Struct:  NewStructStore(),
		GC:      true,
	}
	b.root = newAbstractType(docType)
	b.root.Block = b
	return b
}

// RootType returns the block's single top-level container.
func (b *Block) RootType() *AbstractType { return b.root }

// UnrefsType returns the block's internal "_unrefs" named array, creating
// it on first use. Entries are ContentBlockUnref items appended by
// emitUnref, or decoded into it by ApplyUpdateV2 from a peer's update.
func (b *Block) UnrefsType() *AbstractType {
	if b.unrefs == nil {
		b.unrefs = newAbstractType(DocArray)
		b.unrefs.Block = b
	}
	return b.unrefs
}

// SetID reassigns the block's public id. A collision with an existing
// id is logged and ignored rather than rejected outright: a reassigned
// id only matters for external addressing, not CRDT correctness.
func (b *Block) SetID(id string) {
	if b.owner != nil {
		if _, exists := b.owner.Blocks[id]; exists {
			log.Printf("crdt: block id %q already in use, reassignment of %q ignored", id, b.ID)
			return
		}
		delete(b.owner.Blocks, b.ID)
		b.owner.Blocks[id] = b
		if b.IsRoot {
			delete(b.owner.Roots, b.ID)
			b.owner.Roots[id] = b
		}
	}
	b.ID = id
}

// Clone produces a detached copy of the block's live content as a fresh
// standalone block with a new identity. Ref-conflict resolution uses
// this to give the loser of a conflict its own copy.
func (b *Block) Clone(newID string) *Block {
	nb := NewBlock(newID, b.DocType)
	nb.GC = b.GC
	nb.GCFilter = b.GCFilter
	cloneAbstractTypeInto(nb.root, b.root)
	return nb
}

func cloneAbstractTypeInto(dst, src *AbstractType) {
	dst.Tag = src.Tag
	if src.Kind == DocMap {
		for k, head := range src.MapHeads {
			if head.Deleted {
				continue
			}
			dst.MapHeads[k] = &Item{
				ID:        head.ID,
				Content:   head.Content.Copy(),
				Countable: head.Countable,
				Parent:    ParentRef{Type: dst},
			}
		}
		return
	}
	var tail *Item
	for it := src.Start; it != nil; it = it.Right {
		if it.Deleted {
			continue
		}
		cp := &Item{
			ID:        it.ID,
			Content:   it.Content.Copy(),
			Countable: it.Countable,
			Parent:    ParentRef{Type: dst},
		}
		if tail == nil {
			dst.Start = cp
		} else {
			tail.Right = cp
			cp.Left = tail
		}
		tail = cp
		dst.SeqLength += cp.StructLength()
	}
}

// Transact runs fn inside a transaction scoped to this block, joining the
// owning Store's active StoreTransaction if one is already open
// (re-entrancy) or opening a new one.
func (b *Block) Transact(fn func(tr *Transaction), origin any) {
	if b.owner == nil {
		panic(ErrStandaloneBlock)
	}
	b.owner.transactOnBlock(b, fn, origin)
}

// Store is the multi-document collection owning a set of Blocks. Exactly
// one Block per id; root blocks are additionally addressable by name via
// Roots.
type Store struct {
	ClientID uint32
	Blocks   map[string]*Block
	Roots    map[string]*Block

	GC       bool
	GCFilter func(*Item) bool
	AutoRef  bool

	active *StoreTransaction

	Bus
}

// NewStore creates an empty store for clientID.
func NewStore(clientID uint32) *Store {
	return &Store{
		ClientID: clientID,
		Blocks:   make(map[string]*Block),
		Roots:    make(map[string]*Block),
		GC:       true,
	}
}

// GetBlock looks up an existing block by id.
func (s *Store) GetBlock(id string) (*Block, bool) {
	b, ok := s.Blocks[id]
	return b, ok
}

// GetOrCreateBlock returns the block registered under id, creating an
// embedded (non-root) block of docType if none exists yet. A mismatch
// between the requested docType and an already-registered block's type
// is a caller bug — ids are assumed to be typed consistently.
func (s *Store) GetOrCreateBlock(id string, docType DocType) *Block {
	if b, ok := s.Blocks[id]; ok {
		if b.DocType != docType {
			log.Printf("crdt: %v: block %q registered as %v, ref requests %v", ErrBlockTypeMismatch, id, b.DocType, docType)
		}
		return b
	}
	b := NewBlock(id, docType)
	b.owner = s
	b.GC = s.GC
	b.GCFilter = s.GCFilter
	s.Blocks[id] = b
	return b
}

// CreateBlock registers a new block under id, optionally as a root.
// Prefer GetOrCreateBlock/GetOrCreateRootType for idempotent lookups;
// CreateBlock is for callers that already know the block is new (e.g.
// decoding a manifest of root declarations at startup).
func (s *Store) CreateBlock(id string, docType DocType, isRoot bool) *Block {
	b := s.GetOrCreateBlock(id, docType)
	if isRoot {
		b.IsRoot = true
		s.Roots[id] = b
	}
	return b
}

// GetOrCreateRootType returns the named root block's root container,
// creating the block as a root block of docType if it doesn't exist yet.
func (s *Store) GetOrCreateRootType(name string, docType DocType) *AbstractType {
	if b, ok := s.Roots[name]; ok {
		return b.RootType()
	}
	b := s.GetOrCreateBlock(name, docType)
	b.IsRoot = true
	s.Roots[name] = b
	return b.RootType()
}

// Transact opens (or joins) a store-wide transaction not scoped to any
// single block — used for operations that span multiple blocks (ref
// creation/removal, cross-block cleanup).
func (s *Store) Transact(fn func(tr *Transaction), origin any) {
	s.transactOnBlock(nil, fn, origin)
}
