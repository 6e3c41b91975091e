package crdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// unrefsParentSuffix distinguishes a parent name referring to a block's
// internal "_unrefs" array from one referring to its root type — both
// share the same underlying block id otherwise.
const unrefsParentSuffix = "\x00_unrefs"

// Logical UpdateV2 wire format. The real Yjs encoder packs everything
// through a shared varint/string-table writer; that codec is out of scope
// here, so this uses plain encoding/binary length-prefixed fields instead.
// The framing — info byte, optional origins, optional parent, content tag
// + payload — stays the same; only the primitive encoding is simplified.
const updateV2Version = 1

const (
	infoHasLeftOrigin  = 1 << 0
	infoHasRightOrigin = 1 << 1
	infoHasParentSub   = 1 << 2
	infoDeleted        = 1 << 3
	infoKeep           = 1 << 4
)

const (
	parentTagRootName = 0
	parentTagItemID   = 1
)

const (
	structTagItem = 0
	structTagGC   = 1
	structTagSkip = 2
)

// EncodeStateAsUpdateV2 serializes every struct in block's store into a
// single update buffer a peer can apply with ApplyUpdateV2.
func EncodeStateAsUpdateV2(block *Block) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(updateV2Version)); err != nil {
		return nil, err
	}
	if err := writeString(&buf, block.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(block.Struct.Clients))); err != nil {
		return nil, err
	}
	for client, vec := range block.Struct.Clients {
		if err := binary.Write(&buf, binary.BigEndian, client); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(vec))); err != nil {
			return nil, err
		}
		for _, st := range vec {
			if err := encodeStruct(&buf, st); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func encodeStruct(w *bytes.Buffer, st Struct) error {
	switch v := st.(type) {
	case *GC:
		w.WriteByte(structTagGC)
		binary.Write(w, binary.BigEndian, v.ID.Clock)
		binary.Write(w, binary.BigEndian, v.Len)
		return nil
	case *Skip:
		w.WriteByte(structTagSkip)
		binary.Write(w, binary.BigEndian, v.ID.Clock)
		binary.Write(w, binary.BigEndian, v.Len)
		return nil
	case *Item:
		return encodeItem(w, v)
	default:
		return fmt.Errorf("crdt: unknown struct type %T", st)
	}
}

func encodeItem(w *bytes.Buffer, it *Item) error {
	w.WriteByte(structTagItem)
	binary.Write(w, binary.BigEndian, it.ID.Clock)

	var info byte
	if it.LeftOrigin != nil {
		info |= infoHasLeftOrigin
	}
	if it.RightOrigin != nil {
		info |= infoHasRightOrigin
	}
	if it.ParentSub != nil {
		info |= infoHasParentSub
	}
	if it.Deleted {
		info |= infoDeleted
	}
	if it.Keep {
		info |= infoKeep
	}
	w.WriteByte(info)

	if it.LeftOrigin != nil {
		writeID(w, *it.LeftOrigin)
	}
	if it.RightOrigin != nil {
		writeID(w, *it.RightOrigin)
	}

	if it.Parent.Type != nil && it.Parent.Type.Block != nil && it.Parent.Type.Item == nil {
		w.WriteByte(parentTagRootName)
		name := it.Parent.Type.Block.ID
		if it.Parent.Type == it.Parent.Type.Block.unrefs {
			name += unrefsParentSuffix
		}
		if err := writeString(w, name); err != nil {
			return err
		}
	} else if it.Parent.Type != nil && it.Parent.Type.Item != nil {
		w.WriteByte(parentTagItemID)
		writeID(w, it.Parent.Type.Item.ID)
	} else {
		w.WriteByte(parentTagRootName)
		if err := writeString(w, it.Parent.Pending); err != nil {
			return err
		}
	}
	if it.ParentSub != nil {
		if err := writeString(w, *it.ParentSub); err != nil {
			return err
		}
	}

	return encodeContent(w, it.Content)
}

func encodeContent(w *bytes.Buffer, c Content) error {
	w.WriteByte(byte(c.wireTag()))
	switch v := c.(type) {
	case *ContentDeleted:
		binary.Write(w, binary.BigEndian, v.Len)
	case *ContentJSON:
		binary.Write(w, binary.BigEndian, uint32(len(v.Values)))
		for _, val := range v.Values {
			s := fmt.Sprintf("%v", val)
			if err := writeString(w, s); err != nil {
				return err
			}
		}
	case *ContentBinary:
		if err := writeBytes(w, v.Data); err != nil {
			return err
		}
	case *ContentString:
		if err := writeString(w, v.Str); err != nil {
			return err
		}
	case *ContentEmbed:
		if err := writeString(w, fmt.Sprintf("%v", v.Value)); err != nil {
			return err
		}
	case *ContentFormat:
		if err := writeString(w, v.Key); err != nil {
			return err
		}
		if err := writeString(w, fmt.Sprintf("%v", v.Value)); err != nil {
			return err
		}
	case *ContentType:
		w.WriteByte(byte(v.Type.Kind))
	case *ContentBlockRef:
		if err := writeString(w, v.BlockID); err != nil {
			return err
		}
		w.WriteByte(byte(v.BlockType))
	case *ContentBlockUnref:
		if err := writeString(w, v.BlockID); err != nil {
			return err
		}
		binary.Write(w, binary.BigEndian, v.RefClient)
		binary.Write(w, binary.BigEndian, v.RefClock)
	default:
		return fmt.Errorf("crdt: unknown content type %T", c)
	}
	return nil
}

func writeID(w *bytes.Buffer, id ID) {
	binary.Write(w, binary.BigEndian, id.Client)
	binary.Write(w, binary.BigEndian, id.Clock)
}

func writeString(w *bytes.Buffer, s string) error {
	return writeBytes(w, []byte(s))
}

func writeBytes(w *bytes.Buffer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ApplyUpdateV2 decodes an update produced by EncodeStateAsUpdateV2 and
// integrates every struct it carries into block's store, inside a single
// remote transaction: remote application skips local-only conflict
// resolution and defers it to store cleanup.
func ApplyUpdateV2(block *Block, data []byte, origin any) error {
	if block.owner == nil {
		return ErrStandaloneBlock
	}
	r := bytes.NewReader(data)
	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return fmt.Errorf("crdt: read update version: %w", err)
	}
	if version != updateV2Version {
		return fmt.Errorf("crdt: unsupported update version %d", version)
	}
	if _, err := readString(r); err != nil {
		return fmt.Errorf("crdt: read update block id: %w", err)
	}

	var numClients uint32
	if err := binary.Read(r, binary.BigEndian, &numClients); err != nil {
		return fmt.Errorf("crdt: read client count: %w", err)
	}

	var applyErr error
	block.owner.transactOnBlock(block, func(tr *Transaction) {
		tr.Local = false
		if tr.StoreTransaction != nil {
			tr.StoreTransaction.Local = false
		}
		for i := uint32(0); i < numClients; i++ {
			if applyErr != nil {
				return
			}
			if applyErr = applyClientVector(tr, block, r); applyErr != nil {
				return
			}
		}
	}, origin)
	return applyErr
}

func applyClientVector(tr *Transaction, block *Block, r *bytes.Reader) error {
	var client, count uint32
	if err := binary.Read(r, binary.BigEndian, &client); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		if err := applyStruct(tr, block, client, r); err != nil {
			return err
		}
	}
	return nil
}

func applyStruct(tr *Transaction, block *Block, client uint32, r *bytes.Reader) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	var clock uint32
	if err := binary.Read(r, binary.BigEndian, &clock); err != nil {
		return err
	}

	switch tag {
	case structTagGC:
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return err
		}
		block.Struct.Append(&GC{ID: ID{Client: client, Clock: clock}, Len: length})
		return nil
	case structTagSkip:
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return err
		}
		block.Struct.Append(&Skip{ID: ID{Client: client, Clock: clock}, Len: length})
		return nil
	case structTagItem:
		return applyItem(tr, block, ID{Client: client, Clock: clock}, r)
	default:
		return fmt.Errorf("crdt: unknown struct tag %d", tag)
	}
}

func applyItem(tr *Transaction, block *Block, id ID, r *bytes.Reader) error {
	info, err := r.ReadByte()
	if err != nil {
		return err
	}
	it := &Item{ID: id}

	if info&infoHasLeftOrigin != 0 {
		o, err := readID(r)
		if err != nil {
			return err
		}
		it.LeftOrigin = &o
	}
	if info&infoHasRightOrigin != 0 {
		o, err := readID(r)
		if err != nil {
			return err
		}
		it.RightOrigin = &o
	}

	parentTag, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch parentTag {
	case parentTagRootName:
		name, err := readString(r)
		if err != nil {
			return err
		}
		it.Parent = resolveRootParent(block, name)
	case parentTagItemID:
		pid, err := readID(r)
		if err != nil {
			return err
		}
		parentItem, ok := block.Struct.FindItem(pid)
		if !ok {
			return fmt.Errorf("%w: parent item %v", ErrBlockNotFound, pid)
		}
		if ct, ok := parentItem.Content.(*ContentType); ok {
			it.Parent = ParentRef{Type: ct.Type}
		}
	default:
		return fmt.Errorf("crdt: unknown parent tag %d", parentTag)
	}

	if info&infoHasParentSub != 0 {
		sub, err := readString(r)
		if err != nil {
			return err
		}
		it.ParentSub = &sub
	}

	content, err := decodeContent(r)
	if err != nil {
		return err
	}
	it.Content = content
	it.Countable = content.IsCountable()
	it.Keep = info&infoKeep != 0

	it.Block = block
	block.Struct.Append(it)
	it.Integrate(tr)
	if info&infoDeleted != 0 && !it.Deleted {
		tr.deleteItem(it)
	}
	return nil
}

// resolveRootParent resolves a decoded item's top-level parent. The name
// written by encodeItem is the owning block's own id regardless of
// whether that block is a named root, so this checks the block currently
// being decoded first — the common case — before falling back to a
// lookup by registered root name or bare block id for the rare case of
// a parent belonging to some other already-known block.
func resolveRootParent(block *Block, name string) ParentRef {
	if unrefs := strings.HasSuffix(name, unrefsParentSuffix); unrefs {
		id := strings.TrimSuffix(name, unrefsParentSuffix)
		if target := resolveNamedBlock(block, id); target != nil {
			return ParentRef{Type: target.UnrefsType()}
		}
		return ParentRef{Pending: name}
	}
	if target := resolveNamedBlock(block, name); target != nil {
		return ParentRef{Type: target.RootType()}
	}
	return ParentRef{Pending: name}
}

func resolveNamedBlock(block *Block, id string) *Block {
	if block != nil && block.ID == id {
		return block
	}
	if block == nil || block.owner == nil {
		return nil
	}
	if b, ok := block.owner.Roots[id]; ok {
		return b
	}
	if b, ok := block.owner.Blocks[id]; ok {
		return b
	}
	return nil
}

func decodeContent(r *bytes.Reader) (Content, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	tag := int(tagByte)
	switch tag {
	case wireTagDeleted:
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		return &ContentDeleted{Len: length}, nil
	case wireTagJSON:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		values := make([]any, n)
		for i := range values {
			s, err := readString(r)
			if err != nil {
				return nil, err
			}
			values[i] = s
		}
		return &ContentJSON{Values: values}, nil
	case wireTagBinary:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return &ContentBinary{Data: b}, nil
	case wireTagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &ContentString{Str: s}, nil
	case wireTagEmbed:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &ContentEmbed{Value: s}, nil
	case wireTagFormat:
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		val, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &ContentFormat{Key: key, Value: val}, nil
	case wireTagType:
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return &ContentType{Type: newAbstractType(DocType(kindByte))}, nil
	case wireTagBlockRef:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		dtByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return &ContentBlockRef{BlockID: id, BlockType: DocType(dtByte)}, nil
	case wireTagBlockUnref:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		var refClient, refClock uint32
		if err := binary.Read(r, binary.BigEndian, &refClient); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &refClock); err != nil {
			return nil, err
		}
		return &ContentBlockUnref{BlockID: id, RefClient: refClient, RefClock: refClock}, nil
	default:
		return nil, fmt.Errorf("crdt: unknown content wire tag %d", tag)
	}
}

func readID(r *bytes.Reader) (ID, error) {
	var id ID
	if err := binary.Read(r, binary.BigEndian, &id.Client); err != nil {
		return id, err
	}
	if err := binary.Read(r, binary.BigEndian, &id.Clock); err != nil {
		return id, err
	}
	return id, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
