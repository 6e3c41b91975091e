package crdt

import "sort"

// DeleteRange is a contiguous, half-open clock range [Clock, Clock+Len) of
// deleted items for one client.
type DeleteRange struct {
	Clock uint32
	Len   uint32
}

// End returns the exclusive end of the range.
func (r DeleteRange) End() uint32 { return r.Clock + r.Len }

// DeleteSet is a compact per-client set of deleted id ranges. After
// SortAndMerge, a client's ranges are sorted ascending by clock and
// non-overlapping.
type DeleteSet struct {
	Clients map[uint32][]DeleteRange
}

// NewDeleteSet creates an empty DeleteSet.
func NewDeleteSet() *DeleteSet {
	return &DeleteSet{Clients: make(map[uint32][]DeleteRange)}
}

// Add records [clock, clock+length) as deleted for client. Ranges are
// appended unsorted; call SortAndMerge before relying on ordering.
func (ds *DeleteSet) Add(client, clock, length uint32) {
	if length == 0 {
		return
	}
	ds.Clients[client] = append(ds.Clients[client], DeleteRange{Clock: clock, Len: length})
}

// SortAndMerge sorts each client's ranges ascending by clock and merges
// adjacent/overlapping ranges into single ranges.
func (ds *DeleteSet) SortAndMerge() {
	for client, ranges := range ds.Clients {
		if len(ranges) <= 1 {
			continue
		}
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].Clock < ranges[j].Clock })
		merged := make([]DeleteRange, 0, len(ranges))
		cur := ranges[0]
		for _, r := range ranges[1:] {
			if r.Clock <= cur.End() {
				if r.End() > cur.End() {
					cur.Len = r.End() - cur.Clock
				}
				continue
			}
			merged = append(merged, cur)
			cur = r
		}
		merged = append(merged, cur)
		ds.Clients[client] = merged
	}
}

// IsDeleted reports whether id falls inside one of this set's ranges for
// id.Client. Assumes SortAndMerge has been called (uses binary search).
func (ds *DeleteSet) IsDeleted(id ID) bool {
	ranges, ok := ds.Clients[id.Client]
	if !ok {
		return false
	}
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].End() > id.Clock })
	return i < len(ranges) && ranges[i].Clock <= id.Clock
}

// IterRanges calls fn for every (client, range) pair in the set.
func (ds *DeleteSet) IterRanges(fn func(client uint32, r DeleteRange)) {
	for client, ranges := range ds.Clients {
		for _, r := range ranges {
			fn(client, r)
		}
	}
}

// Merge folds other's ranges into ds.
func (ds *DeleteSet) Merge(other *DeleteSet) {
	if other == nil {
		return
	}
	for client, ranges := range other.Clients {
		ds.Clients[client] = append(ds.Clients[client], ranges...)
	}
	ds.SortAndMerge()
}
