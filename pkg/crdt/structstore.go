package crdt

import "sort"

// Struct is the sum type a StructStore holds per (client, clock): an Item,
// a GC marker (a deleted Item whose content has been reclaimed), or a Skip
// (a placeholder for a clock range this client never produced, used while
// applying remote updates that reference state this store hasn't seen
// other parts of yet).
type Struct interface {
	StructID() ID
	StructLength() uint32
	IsDeleted() bool
}

// GC replaces a deleted Item in-place to reclaim its content while
// preserving the occupied clock range.
type GC struct {
	ID  ID
	Len uint32
}

func (g *GC) StructID() ID         { return g.ID }
func (g *GC) StructLength() uint32 { return g.Len }
func (g *GC) IsDeleted() bool      { return true }

// Skip marks a clock range with no local knowledge of its content yet.
type Skip struct {
	ID  ID
	Len uint32
}

func (s *Skip) StructID() ID         { return s.ID }
func (s *Skip) StructLength() uint32 { return s.Len }
func (s *Skip) IsDeleted() bool      { return false }

// StructStore is a per-client append-only operation log keyed by clock.
// Each client's vector is kept sorted by clock; binary
// search (FindIndexSS) is the building block every higher-level algorithm
// (integration, GC, merge) uses to locate a struct.
type StructStore struct {
	Clients map[uint32][]Struct
}

// NewStructStore creates an empty store.
func NewStructStore() *StructStore {
	return &StructStore{Clients: make(map[uint32][]Struct)}
}

// Append adds st to the end of its client's vector. Callers are
// responsible for appending in increasing clock order — the store does
// not resort on append.
func (s *StructStore) Append(st Struct) {
	c := st.StructID().Client
	s.Clients[c] = append(s.Clients[c], st)
}

// GetState returns the next free clock for client: the clock one past the
// last struct's occupied range, or 0 if the client is unknown.
func (s *StructStore) GetState(client uint32) uint32 {
	v := s.Clients[client]
	if len(v) == 0 {
		return 0
	}
	last := v[len(v)-1]
	return last.StructID().Clock + last.StructLength()
}

// GetStateVector returns the next-free-clock for every known client.
func (s *StructStore) GetStateVector() map[uint32]uint32 {
	sv := make(map[uint32]uint32, len(s.Clients))
	for c := range s.Clients {
		sv[c] = s.GetState(c)
	}
	return sv
}

// FindIndexSS binary-searches client's vector for the struct whose
// occupied range [id.Clock, id.Clock+length) contains clock. Because
// Items may later be split (Splice), the returned index may point at a
// struct whose range merely contains clock rather than starts at it;
// callers that need an exact boundary must split first.
func (s *StructStore) FindIndexSS(client uint32, clock uint32) (int, bool) {
	v := s.Clients[client]
	if len(v) == 0 {
		return 0, false
	}
	i := sort.Search(len(v), func(i int) bool {
		return v[i].StructID().Clock+v[i].StructLength() > clock
	})
	if i >= len(v) || v[i].StructID().Clock > clock {
		return i, false
	}
	return i, true
}

// Find returns the struct occupying clock for client, if any.
func (s *StructStore) Find(client, clock uint32) (Struct, bool) {
	i, ok := s.FindIndexSS(client, clock)
	if !ok {
		return nil, false
	}
	return s.Clients[client][i], true
}

// FindItem is a convenience wrapper over Find that only returns Items
// (GC/Skip structs return ok=false since they carry no live content).
func (s *StructStore) FindItem(id ID) (*Item, bool) {
	st, ok := s.Find(id.Client, id.Clock)
	if !ok {
		return nil, false
	}
	it, ok := st.(*Item)
	return it, ok
}

// IterRange returns every struct for client whose range intersects
// [lo, hi).
func (s *StructStore) IterRange(client uint32, lo, hi uint32) []Struct {
	v := s.Clients[client]
	var out []Struct
	for _, st := range v {
		id := st.StructID()
		if id.Clock < hi && id.Clock+st.StructLength() > lo {
			out = append(out, st)
		}
	}
	return out
}

// ReplaceAt overwrites the struct at index idx for client — used by GC
// (Item -> GC) and by merge (two structs -> one merged struct).
func (s *StructStore) ReplaceAt(client uint32, idx int, st Struct) {
	s.Clients[client][idx] = st
}

// SpliceAt removes count structs starting at idx for client and
// inserts replacement in their place (used when a merge collapses several
// adjacent structs into one).
func (s *StructStore) SpliceAt(client uint32, idx int, count int, replacement ...Struct) {
	v := s.Clients[client]
	tail := append([]Struct{}, v[idx+count:]...)
	v = append(v[:idx], replacement...)
	v = append(v, tail...)
	s.Clients[client] = v
}
