package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentString_SpliceAndMerge(t *testing.T) {
	c := &ContentString{Str: "hello"}
	right := c.Splice(2)

	assert.Equal(t, "he", c.Str)
	assert.Equal(t, "llo", right.(*ContentString).Str)

	ok := c.MergeWith(right)
	require.True(t, ok)
	assert.Equal(t, "hello", c.Str)
}

func TestContentString_MergeRejectsOtherKind(t *testing.T) {
	c := &ContentString{Str: "a"}
	assert.False(t, c.MergeWith(&ContentEmbed{Value: 1}))
}

func TestContentJSON_SpliceAndMerge(t *testing.T) {
	c := &ContentJSON{Values: []any{1, 2, 3}}
	right := c.Splice(1)

	assert.Equal(t, []any{1}, c.Values)
	assert.Equal(t, []any{2, 3}, right.(*ContentJSON).Values)

	require.True(t, c.MergeWith(right))
	assert.Equal(t, []any{1, 2, 3}, c.Values)
}

func TestContentRefAndUnref_NeverMerge(t *testing.T) {
	a := &ContentBlockRef{BlockID: "a"}
	b := &ContentBlockRef{BlockID: "a"}
	assert.False(t, a.MergeWith(b))

	u1 := &ContentBlockUnref{BlockID: "a"}
	u2 := &ContentBlockUnref{BlockID: "a"}
	assert.False(t, u1.MergeWith(u2))
}

func TestContentType_IntegrateSetsBackpointers(t *testing.T) {
	store := NewStore(1)
	block := store.CreateBlock("doc", DocArray, true)

	var nested *AbstractType
	block.Transact(func(tr *Transaction) {
		nested = block.RootType().InsertNested(tr, 0, DocMap)
	}, nil)

	require.NotNil(t, nested.Item)
	assert.Same(t, block, nested.Block)
}

func TestContent_CopyIsIndependent(t *testing.T) {
	c := &ContentString{Str: "x"}
	cp := c.Copy().(*ContentString)
	cp.Str = "y"
	assert.Equal(t, "x", c.Str)
}

func TestContent_WireTagsAreStable(t *testing.T) {
	// Ref/Unref wire tags are pinned to fixed values; the rest only need
	// to be internally distinct and stable within a build.
	assert.Equal(t, 11, (&ContentBlockRef{}).wireTag())
	assert.Equal(t, 12, (&ContentBlockUnref{}).wireTag())
}
