package crdt

import "log"

// Transaction scopes one logical mutation against a single Block. It
// accumulates everything the cleanup pipeline needs once the outermost
// transact call returns: which types changed, what was deleted, and
// which structs are merge candidates.
type Transaction struct {
	Block  *Block
	Origin any
	Local  bool

	DeleteSet *DeleteSet

	BeforeState map[uint32]uint32
	AfterState  map[uint32]uint32

	Changed            map[*AbstractType]map[string]struct{}
	ChangedParentTypes []*AbstractType

	MergeStructs []Struct

	NeedFormattingCleanup bool

	StoreTransaction *StoreTransaction
}

func newTransaction(block *Block, st *StoreTransaction, origin any, local bool) *Transaction {
	var before map[uint32]uint32
	if block != nil {
		before = block.Struct.GetStateVector()
	}
	return &Transaction{
		Block:            block,
		Origin:           origin,
		Local:            local,
		DeleteSet:        NewDeleteSet(),
		BeforeState:      before,
		Changed:          make(map[*AbstractType]map[string]struct{}),
		StoreTransaction: st,
	}
}

// nextID allocates the next length-sized id for block on the owning
// store's client id.
func (tr *Transaction) nextID(block *Block, length uint32) ID {
	clientID := tr.clientIDFor(block)
	clock := block.Struct.GetState(clientID)
	return ID{Client: clientID, Clock: clock}
}

func (tr *Transaction) clientIDFor(block *Block) uint32 {
	if block != nil && block.owner != nil {
		return block.owner.ClientID
	}
	if tr.Block != nil && tr.Block.owner != nil {
		return tr.Block.owner.ClientID
	}
	return 0
}

// integrateAndTrack appends it to its target block's struct store,
// integrates it (splicing into the parent and running content
// integration), and records the touched parent for observer dispatch.
func (tr *Transaction) integrateAndTrack(it *Item) {
	target := it.Parent.Type.Block
	if target == nil {
		target = tr.Block
	}
	it.Block = target
	target.Struct.Append(it)
	it.Integrate(tr)
}

// markChanged records that parent changed (optionally at a specific map
// key / sequence marker sub), used by the cleanup pipeline to build the
// per-type change sets handed to observers.
func (tr *Transaction) markChanged(parent *AbstractType, sub *string) {
	set, ok := tr.Changed[parent]
	if !ok {
		set = make(map[string]struct{})
		tr.Changed[parent] = set
		tr.ChangedParentTypes = append(tr.ChangedParentTypes, parent)
	}
	key := ""
	if sub != nil {
		key = *sub
	}
	set[key] = struct{}{}
}

// deleteItem marks it deleted as a whole (no split), records its range on
// the transaction's DeleteSet, runs the content's Delete hook and shrinks
// the parent sequence's length for a countable item.
func (tr *Transaction) deleteItem(it *Item) {
	if it.Deleted {
		return
	}
	it.Deleted = true
	tr.DeleteSet.Add(it.ID.Client, it.ID.Clock, it.StructLength())
	if it.Content != nil {
		it.Content.Delete(tr, it)
	}
	if it.Parent.Type != nil && it.Parent.Type.Kind.isSequence() && it.ParentSub == nil && it.Countable {
		if it.Parent.Type.SeqLength >= it.StructLength() {
			it.Parent.Type.SeqLength -= it.StructLength()
		}
	}
	tr.markChanged(it.Parent.Type, it.ParentSub)
}

// StoreTransaction coordinates one or more per-block Transactions opened
// within the same outermost Store.Transact/Block.Transact call
// (re-entrancy: nested transact calls share this struct instead of each
// running their own cleanup pass).
type StoreTransaction struct {
	Store  *Store
	Origin any
	Local  bool

	BlockTransactions map[*Block]*Transaction
	BlocksAdded       []*Block

	BlockRefsAdded   []*ContentBlockRef
	BlockRefsRemoved []*ContentBlockRef
	BlockUnrefsAdded []*ContentBlockUnref

	RootBlockEvents map[*Block][]any
}

// transactOnBlock opens (or, if one is already active, joins) a
// StoreTransaction and runs fn against the Transaction scoped to block
// (block may be nil for a store-wide transaction touching no single
// block directly, e.g. ref bookkeeping). Cleanup only runs once, when the
// outermost call returns.
func (s *Store) transactOnBlock(block *Block, fn func(tr *Transaction), origin any) {
	if s.active != nil {
		tr := s.joinTransaction(block, s.active)
		fn(tr)
		return
	}

	st := &StoreTransaction{
		Store:             s,
		Origin:            origin,
		Local:             true,
		BlockTransactions: make(map[*Block]*Transaction),
		RootBlockEvents:   make(map[*Block][]any),
	}
	s.active = st
	tr := s.joinTransaction(block, st)
	fn(tr)
	s.active = nil
	s.runCleanup(st)
}

func (s *Store) joinTransaction(block *Block, st *StoreTransaction) *Transaction {
	if block == nil {
		return newTransaction(nil, st, st.Origin, st.Local)
	}
	if tr, ok := st.BlockTransactions[block]; ok {
		return tr
	}
	tr := newTransaction(block, st, st.Origin, st.Local)
	st.BlockTransactions[block] = tr
	return tr
}

// runCleanup runs the cleanup pipeline: resolve ref conflicts discovered
// this transaction, dispatch per-type observers, dispatch root-block
// observers, then per-block GC and struct merge, and finally emit the
// store-wide "afterTransaction" event.
func (s *Store) runCleanup(st *StoreTransaction) {
	resolveBlockRefs(st)

	for block, tr := range st.BlockTransactions {
		dispatchTypeObservers(tr)
		block.Emit("update", tr)
	}

	for block := range st.BlockTransactions {
		if block.IsRoot {
			block.Emit("root-update", st)
		}
	}

	for block, tr := range st.BlockTransactions {
		if block.GC {
			gcAndMerge(block, tr)
		}
	}

	s.Emit("afterTransaction", st)
}

// dispatchTypeObservers calls each changed type's registered observers,
// recovering from and logging panics so one faulty observer can't stop
// its siblings.
func dispatchTypeObservers(tr *Transaction) {
	for _, typ := range tr.ChangedParentTypes {
		keys := tr.Changed[typ]
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("crdt: type observer panic recovered: %v", r)
				}
			}()
			typ.Emit("change", keys)
		}()
	}
}
