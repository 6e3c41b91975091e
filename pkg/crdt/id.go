// Package crdt implements the core of a multi-document collaborative data
// engine: independently mutable shared Blocks that can embed one another by
// reference, coordinated transactions spanning several Blocks inside one
// Store, and the Ref/Unref content type that makes block embedding a
// first-class CRDT operation.
package crdt

import "fmt"

// ID identifies a single Item: the client that created it and that
// client's logical clock at creation time. IDs are monotone per client and
// totally ordered.
type ID struct {
	Client uint32
	Clock  uint32
}

// Equal reports whether two IDs name the same Item.
func (a ID) Equal(b ID) bool {
	return a.Client == b.Client && a.Clock == b.Clock
}

// Less orders IDs first by client, then by clock, giving a total order.
// It is NOT the conflict tie-break rule; that is GreaterForConflict.
func (a ID) Less(b ID) bool {
	if a.Client != b.Client {
		return a.Client < b.Client
	}
	return a.Clock < b.Clock
}

// GreaterForConflict implements the base-CRDT integration tie-break rule
// from spec §4.2 step 1: among candidates at the same position, the item
// with the greater client wins; ties break on the greater clock.
func (a ID) GreaterForConflict(b ID) bool {
	if a.Client != b.Client {
		return a.Client > b.Client
	}
	return a.Clock > b.Clock
}

func (a ID) String() string {
	return fmt.Sprintf("(%d,%d)", a.Client, a.Clock)
}

// IDPtrEqual compares two optional IDs, treating nil as "no origin".
func IDPtrEqual(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
