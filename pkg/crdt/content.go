package crdt

// ContentKind discriminates the tagged Content sum: a tagged sum plus a
// capability table is preferred here over an open interface so switches
// over Content stay exhaustive.
type ContentKind int

const (
	ContentKindDeleted ContentKind = iota
	ContentKindJSON
	ContentKindBinary
	ContentKindString
	ContentKindEmbed
	ContentKindFormat
	ContentKindType
	ContentKindBlockRef
	ContentKindBlockUnref
)

// wire tags for UpdateV2. Only Ref/Unref tags are pinned to fixed values;
// the others are assigned in declaration order.
const (
	wireTagDeleted = iota
	wireTagJSON
	wireTagBinary
	wireTagString
	wireTagEmbed
	wireTagFormat
	wireTagType
	wireTagBlockRef   = 11
	wireTagBlockUnref = 12
)

// Content is the polymorphic payload of an Item. Every variant implements
// the same capability table: Integrate, Delete, GC, Length, IsCountable,
// Copy, Splice, MergeWith, plus wireTag (the payload itself is written by
// encodeContent in update.go).
type Content interface {
	Kind() ContentKind
	Length() int
	IsCountable() bool
	Copy() Content
	// Splice divides the content at offset, returning the right-hand
	// part and truncating the receiver to the left-hand part in place.
	Splice(offset int) Content
	// MergeWith reports whether other was folded into the receiver.
	// Ref and Unref always return false.
	MergeWith(other Content) bool
	// Integrate runs content-specific integration obligations once the
	// owning Item has been spliced into its parent.
	Integrate(tr *Transaction, item *Item)
	// Delete runs content-specific cleanup when the owning Item is
	// deleted (used by Ref to clear the referrer backlink).
	Delete(tr *Transaction, item *Item)
	// GC releases any resources the content holds once its Item is
	// permanently reclaimed. Most variants are no-ops.
	GC(store *StructStore)
	wireTag() int
}

// ContentDeleted represents a reclaimed/tombstoned run of length Len.
// Produced by GC in place of an Item's original content.
type ContentDeleted struct {
	Len uint32
}

func (c *ContentDeleted) Kind() ContentKind       { return ContentKindDeleted }
func (c *ContentDeleted) Length() int             { return int(c.Len) }
func (c *ContentDeleted) IsCountable() bool        { return false }
func (c *ContentDeleted) Copy() Content            { return &ContentDeleted{Len: c.Len} }
func (c *ContentDeleted) GC(*StructStore)          {}
func (c *ContentDeleted) Integrate(*Transaction, *Item) {}
func (c *ContentDeleted) Delete(*Transaction, *Item)    {}
func (c *ContentDeleted) wireTag() int             { return wireTagDeleted }
func (c *ContentDeleted) Splice(offset int) Content {
	right := &ContentDeleted{Len: c.Len - uint32(offset)}
	c.Len = uint32(offset)
	return right
}
func (c *ContentDeleted) MergeWith(other Content) bool {
	o, ok := other.(*ContentDeleted)
	if !ok {
		return false
	}
	c.Len += o.Len
	return true
}

// ContentJSON holds a run of arbitrary JSON-ish values (used by Array/Map
// item payloads that aren't embedded types or refs).
type ContentJSON struct {
	Values []any
}

func (c *ContentJSON) Kind() ContentKind { return ContentKindJSON }
func (c *ContentJSON) Length() int       { return len(c.Values) }
func (c *ContentJSON) IsCountable() bool { return true }
func (c *ContentJSON) Copy() Content {
	v := append([]any{}, c.Values...)
	return &ContentJSON{Values: v}
}
func (c *ContentJSON) GC(*StructStore)              {}
func (c *ContentJSON) Integrate(*Transaction, *Item) {}
func (c *ContentJSON) Delete(*Transaction, *Item)    {}
func (c *ContentJSON) wireTag() int                 { return wireTagJSON }
func (c *ContentJSON) Splice(offset int) Content {
	right := &ContentJSON{Values: append([]any{}, c.Values[offset:]...)}
	c.Values = c.Values[:offset]
	return right
}
func (c *ContentJSON) MergeWith(other Content) bool {
	o, ok := other.(*ContentJSON)
	if !ok {
		return false
	}
	c.Values = append(c.Values, o.Values...)
	return true
}

// ContentBinary holds a single opaque byte blob.
type ContentBinary struct {
	Data []byte
}

func (c *ContentBinary) Kind() ContentKind             { return ContentKindBinary }
func (c *ContentBinary) Length() int                   { return 1 }
func (c *ContentBinary) IsCountable() bool              { return true }
func (c *ContentBinary) Copy() Content                  { return &ContentBinary{Data: append([]byte{}, c.Data...)} }
func (c *ContentBinary) GC(*StructStore)                {}
func (c *ContentBinary) Integrate(*Transaction, *Item) {}
func (c *ContentBinary) Delete(*Transaction, *Item)    {}
func (c *ContentBinary) wireTag() int                  { return wireTagBinary }
func (c *ContentBinary) Splice(int) Content             { return &ContentBinary{} }
func (c *ContentBinary) MergeWith(Content) bool         { return false }

// ContentString holds a run of text characters (Text/XmlText item
// payload). Splice divides on rune boundaries.
type ContentString struct {
	Str string
}

func (c *ContentString) Kind() ContentKind { return ContentKindString }
func (c *ContentString) Length() int       { return len([]rune(c.Str)) }
func (c *ContentString) IsCountable() bool { return true }
func (c *ContentString) Copy() Content     { return &ContentString{Str: c.Str} }
func (c *ContentString) GC(*StructStore)              {}
func (c *ContentString) Integrate(*Transaction, *Item) {}
func (c *ContentString) Delete(*Transaction, *Item)    {}
func (c *ContentString) wireTag() int                 { return wireTagString }
func (c *ContentString) Splice(offset int) Content {
	r := []rune(c.Str)
	right := &ContentString{Str: string(r[offset:])}
	c.Str = string(r[:offset])
	return right
}
func (c *ContentString) MergeWith(other Content) bool {
	o, ok := other.(*ContentString)
	if !ok {
		return false
	}
	c.Str += o.Str
	return true
}

// ContentEmbed holds a single countable embedded value (e.g. an image
// reference inside rich text). Never splits or merges.
type ContentEmbed struct {
	Value any
}

func (c *ContentEmbed) Kind() ContentKind             { return ContentKindEmbed }
func (c *ContentEmbed) Length() int                   { return 1 }
func (c *ContentEmbed) IsCountable() bool              { return true }
func (c *ContentEmbed) Copy() Content                  { return &ContentEmbed{Value: c.Value} }
func (c *ContentEmbed) GC(*StructStore)                {}
func (c *ContentEmbed) Integrate(*Transaction, *Item) {}
func (c *ContentEmbed) Delete(*Transaction, *Item)    {}
func (c *ContentEmbed) wireTag() int                  { return wireTagEmbed }
func (c *ContentEmbed) Splice(int) Content             { return &ContentEmbed{} }
func (c *ContentEmbed) MergeWith(Content) bool         { return false }

// ContentFormat holds a single rich-text formatting mark (key/value pair,
// e.g. {"bold": true}). Non-countable, never merges.
type ContentFormat struct {
	Key   string
	Value any
}

func (c *ContentFormat) Kind() ContentKind             { return ContentKindFormat }
func (c *ContentFormat) Length() int                   { return 1 }
func (c *ContentFormat) IsCountable() bool              { return false }
func (c *ContentFormat) Copy() Content                  { return &ContentFormat{Key: c.Key, Value: c.Value} }
func (c *ContentFormat) GC(*StructStore)                {}
func (c *ContentFormat) Integrate(*Transaction, *Item) {}
func (c *ContentFormat) Delete(*Transaction, *Item)    {}
func (c *ContentFormat) wireTag() int                  { return wireTagFormat }
func (c *ContentFormat) Splice(int) Content             { return &ContentFormat{} }
func (c *ContentFormat) MergeWith(Content) bool         { return false }

// ContentType holds an embedded AbstractType (a nested map/array/etc
// living as one item inside a parent sequence or map, same Block). This
// is distinct from ContentBlockRef, which references an entirely separate
// Block.
type ContentType struct {
	Type *AbstractType
}

func (c *ContentType) Kind() ContentKind { return ContentKindType }
func (c *ContentType) Length() int       { return 1 }
func (c *ContentType) IsCountable() bool { return true }
func (c *ContentType) Copy() Content     { return &ContentType{Type: c.Type} }
func (c *ContentType) GC(*StructStore)   {}
func (c *ContentType) Delete(*Transaction, *Item) {}
func (c *ContentType) wireTag() int      { return wireTagType }
func (c *ContentType) Splice(int) Content { return &ContentType{} }
func (c *ContentType) MergeWith(Content) bool { return false }
func (c *ContentType) Integrate(tr *Transaction, item *Item) {
	c.Type.Item = item
	c.Type.Block = item.Block
}

// ContentBlockRef is the Ref content variant. Only BlockID and BlockType
// cross the wire; block/typ/item are local caches resolved during
// integration.
type ContentBlockRef struct {
	BlockID   string
	BlockType DocType

	block *Block
	typ   *AbstractType
	item  *Item
}

func (c *ContentBlockRef) Kind() ContentKind { return ContentKindBlockRef }
func (c *ContentBlockRef) Length() int       { return 1 }
func (c *ContentBlockRef) IsCountable() bool { return true }
func (c *ContentBlockRef) Copy() Content {
	return &ContentBlockRef{BlockID: c.BlockID, BlockType: c.BlockType}
}
func (c *ContentBlockRef) GC(*StructStore)     {}
func (c *ContentBlockRef) wireTag() int        { return wireTagBlockRef }
func (c *ContentBlockRef) Splice(int) Content  { return &ContentBlockRef{} }
func (c *ContentBlockRef) MergeWith(Content) bool { return false } // refs never merge

// Integrate resolves a local/remote Ref against its target block.
func (c *ContentBlockRef) Integrate(tr *Transaction, item *Item) {
	c.item = item
	st := tr.StoreTransaction
	if st == nil {
		return
	}
	st.BlockRefsAdded = append(st.BlockRefsAdded, c)

	target := st.Store.GetOrCreateBlock(c.BlockID, c.BlockType)

	if !tr.Local {
		// Remote ref: cache the target but defer conflict resolution to
		// the store-level cleanup step.
		c.block = target
		c.typ = target.RootType()
		return
	}

	if target.Referrer != nil && target.Referrer != item {
		resolveRefConflict(st, c)
		return
	}
	target.Referrer = item
	c.block = target
	c.typ = target.RootType()
	validateCircularRef(tr, item)
}

// Delete clears the referrer backlink and records an Unref on local delete.
func (c *ContentBlockRef) Delete(tr *Transaction, item *Item) {
	block := c.block
	if block == nil {
		return
	}
	unreffedBlockID := block.ID
	st := tr.StoreTransaction
	if block.Referrer == item {
		block.PrevReferrer = item
		block.Referrer = nil
		c.block = nil
		c.typ = nil
	}
	if st != nil {
		st.BlockRefsAdded = removeContentRef(st.BlockRefsAdded, c)
		st.BlockRefsRemoved = append(st.BlockRefsRemoved, c)
	}
	if tr.Local && item.Block != nil {
		emitUnref(tr, item.Block, unreffedBlockID, item.ID)
	}
}

func removeContentRef(list []*ContentBlockRef, target *ContentBlockRef) []*ContentBlockRef {
	out := list[:0]
	for _, c := range list {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// ContentBlockUnref is the Unref content variant. It records
// that a previous Ref has been forgotten so peers can prune stale
// back-references.
type ContentBlockUnref struct {
	BlockID   string
	RefClient uint32
	RefClock  uint32
}

func (c *ContentBlockUnref) Kind() ContentKind { return ContentKindBlockUnref }
func (c *ContentBlockUnref) Length() int       { return 1 }
func (c *ContentBlockUnref) IsCountable() bool { return true }
func (c *ContentBlockUnref) Copy() Content {
	return &ContentBlockUnref{BlockID: c.BlockID, RefClient: c.RefClient, RefClock: c.RefClock}
}
func (c *ContentBlockUnref) GC(*StructStore)       {}
func (c *ContentBlockUnref) Delete(*Transaction, *Item) {}
func (c *ContentBlockUnref) wireTag() int          { return wireTagBlockUnref }
func (c *ContentBlockUnref) Splice(int) Content    { return &ContentBlockUnref{} }
func (c *ContentBlockUnref) MergeWith(Content) bool { return false } // never merges

// Integrate sets Keep=true so GC never reclaims the record, and tracks
// it on the transaction for observers.
func (c *ContentBlockUnref) Integrate(tr *Transaction, item *Item) {
	item.Keep = true
	if tr.StoreTransaction != nil {
		tr.StoreTransaction.BlockUnrefsAdded = append(tr.StoreTransaction.BlockUnrefsAdded, c)
	}
}
