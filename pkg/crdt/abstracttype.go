package crdt

// AbstractType is the shared base of every CRDT container shape (Array,
// Map, Text, XmlFragment, XmlElement, XmlText). A root type
// is one directly owned by a Block (Item == nil); a nested type lives as
// the payload of a ContentType inside some other type's sequence or map.
type AbstractType struct {
	Kind DocType
	Tag  string // element/attribute name, only meaningful for DocXmlElement

	// sequence storage (Array/Text/XmlFragment/XmlElement/XmlText)
	Start     *Item
	SeqLength uint32

	// map storage (Map), keyed by entry name; the visible value is the
	// chain head (greatest id wins)
	MapHeads map[string]*Item

	Item  *Item  // the Item carrying this type as ContentType, nil if root
	Block *Block // owning Block, set on Integrate / root construction

	Bus
}

func newAbstractType(kind DocType) *AbstractType {
	t := &AbstractType{Kind: kind}
	if kind == DocMap {
		t.MapHeads = make(map[string]*Item)
	}
	return t
}

// Length returns the container's visible (non-deleted, countable) length:
// SeqLength for sequence types, live-key count for Map.
func (t *AbstractType) Length() int {
	if t.Kind == DocMap {
		n := 0
		for _, head := range t.MapHeads {
			if !head.Deleted {
				n++
			}
		}
		return n
	}
	return int(t.SeqLength)
}

// forEachAlive walks the sequence from Start, yielding only non-deleted
// items in order.
func (t *AbstractType) forEachAlive(fn func(*Item)) {
	for it := t.Start; it != nil; it = it.Right {
		if !it.Deleted {
			fn(it)
		}
	}
}

// itemAt returns the live item occupying sequence position index, and the
// item immediately to its left (nil if index == 0), for use as insertion
// neighbours.
func (t *AbstractType) itemAt(index int) (left *Item, at *Item) {
	pos := 0
	var prev *Item
	for it := t.Start; it != nil; it = it.Right {
		if it.Deleted {
			continue
		}
		if pos == index {
			return prev, it
		}
		prev = it
		pos++
	}
	return prev, nil
}

// Insert creates one new sequence item holding content at index, taking
// its id from the CRDT id sequence maintained by tr. content is never
// split: a multi-character ContentString or multi-value ContentJSON
// becomes a single Item whose length is the content's length.
func (t *AbstractType) Insert(tr *Transaction, index int, content Content) *Item {
	left, at := t.itemAt(index)

	var leftOrigin, rightOrigin *ID
	if left != nil {
		id := left.ID
		leftOrigin = &id
	}
	if at != nil {
		id := at.ID
		rightOrigin = &id
	}

	it := &Item{
		ID:          tr.nextID(t.Block, uint32(content.Length())),
		LeftOrigin:  leftOrigin,
		RightOrigin: rightOrigin,
		Content:     content,
		Countable:   content.IsCountable(),
		Parent:      ParentRef{Type: t},
	}
	tr.integrateAndTrack(it)
	return it
}

// InsertText is a convenience wrapper for Text/XmlText containers.
func (t *AbstractType) InsertText(tr *Transaction, index int, s string) *Item {
	return t.Insert(tr, index, &ContentString{Str: s})
}

// Set assigns key to content in a Map container and returns the new Item.
// The new Item becomes the chain head unless the current head has a
// greater id (see integrateMapItem). The previous head is not deleted; it
// stays reachable through the new Item's Left.
func (t *AbstractType) Set(tr *Transaction, key string, content Content) *Item {
	sub := key
	it := &Item{
		ID:        tr.nextID(t.Block, uint32(content.Length())),
		Content:   content,
		Countable: content.IsCountable(),
		Parent:    ParentRef{Type: t},
		ParentSub: &sub,
	}
	tr.integrateAndTrack(it)
	return it
}

// InsertNested inserts a freshly created nested container of kind at a
// sequence position, returning the new container for further mutation.
// Used to build e.g. an XmlElement's children or an Array-of-Maps
// without going through a separate Block/Ref.
func (t *AbstractType) InsertNested(tr *Transaction, index int, kind DocType) *AbstractType {
	nested := newAbstractType(kind)
	it := t.Insert(tr, index, &ContentType{Type: nested})
	nested.Item = it
	nested.Block = it.Block
	return nested
}

// SetNested is InsertNested's Map-container counterpart.
func (t *AbstractType) SetNested(tr *Transaction, key string, kind DocType) *AbstractType {
	nested := newAbstractType(kind)
	it := t.Set(tr, key, &ContentType{Type: nested})
	nested.Item = it
	nested.Block = it.Block
	return nested
}

// Get returns the live value at a Map key, or nil if absent/deleted.
func (t *AbstractType) Get(key string) *Item {
	head, ok := t.MapHeads[key]
	if !ok || head.Deleted {
		return nil
	}
	return head
}

// Delete marks count live sequence items starting at index as deleted,
// recording the range on tr's DeleteSet and running each item's
// content-specific Delete hook.
func (t *AbstractType) Delete(tr *Transaction, index, count int) {
	pos := 0
	for it := t.Start; it != nil && count > 0; it = it.Right {
		if it.Deleted {
			continue
		}
		if pos >= index {
			tr.deleteItem(it)
			count--
		}
		pos++
	}
}

// RemoveKey deletes a Map entry's current head.
func (t *AbstractType) RemoveKey(tr *Transaction, key string) {
	head, ok := t.MapHeads[key]
	if !ok || head.Deleted {
		return
	}
	tr.deleteItem(head)
}

// ToSlice materializes a sequence type's live contents in order. A
// ContentJSON item contributes one entry per value; every other item
// contributes a single entry (a ContentString run contributes its whole
// string; callers that want characters should use ToText).
func (t *AbstractType) ToSlice() []any {
	var out []any
	t.forEachAlive(func(it *Item) {
		switch c := it.Content.(type) {
		case *ContentJSON:
			out = append(out, c.Values...)
		case *ContentString:
			out = append(out, c.Str)
		case *ContentEmbed:
			out = append(out, c.Value)
		case *ContentType:
			out = append(out, c.Type)
		case *ContentBlockRef:
			out = append(out, c)
		default:
			out = append(out, c)
		}
	})
	return out
}

// ToText concatenates a Text/XmlText container's live character runs.
func (t *AbstractType) ToText() string {
	s := ""
	t.forEachAlive(func(it *Item) {
		if cs, ok := it.Content.(*ContentString); ok {
			s += cs.Str
		}
	})
	return s
}

// ToMap materializes a Map container's live entries. Single-value content
// (JSON with one value, Embed) unwraps to the bare value, JSON with several
// values to its value slice, and ContentType to its *AbstractType;
// everything else surfaces as its Content for the caller to switch on.
func (t *AbstractType) ToMap() map[string]any {
	out := make(map[string]any, len(t.MapHeads))
	for k, head := range t.MapHeads {
		if head.Deleted {
			continue
		}
		switch c := head.Content.(type) {
		case *ContentJSON:
			if len(c.Values) == 1 {
				out[k] = c.Values[0]
			} else {
				out[k] = c.Values
			}
		case *ContentEmbed:
			out[k] = c.Value
		case *ContentType:
			out[k] = c.Type
		default:
			out[k] = c
		}
	}
	return out
}
