package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempMessageId(t *testing.T) {
	id := GenTempMessageId("12345")
	assert.Equal(t, "temp_12345", id)
	assert.True(t, IsTempMessageId(id))
	assert.False(t, IsTempMessageId("4f2c9b34-27ab-4e5f-9f01-2b8d0c3c1a77"))
	assert.True(t, (&Message{Id: id}).IsTemp())
}

func TestSortMessages(t *testing.T) {
	msgs := []*Message{
		{Id: "c", CreatedAt: 3000},
		{Id: "b", CreatedAt: 1000},
		{Id: "a", CreatedAt: 1000},
	}
	SortMessages(msgs)

	require.Equal(t, "a", msgs[0].Id, "ties break on id")
	require.Equal(t, "b", msgs[1].Id)
	require.Equal(t, "c", msgs[2].Id)
}

func TestDedupeMessages(t *testing.T) {
	msgs := []*Message{
		{Id: "a", Content: "first"},
		{Id: "b"},
		{Id: "a", Content: "dup"},
	}
	out := DedupeMessages(msgs)

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Content, "first occurrence wins")
	assert.Equal(t, "b", out[1].Id)
}

func TestProfileTitle(t *testing.T) {
	name := "Bob"
	assert.Equal(t, "Bob", (&Profile{Email: "b@x.io", DisplayName: &name}).Title())
	assert.Equal(t, "b@x.io", (&Profile{Email: "b@x.io"}).Title())
	assert.Equal(t, "Unknown", (&Profile{}).Title())
	assert.Equal(t, "Unknown", (*Profile)(nil).Title())
}
