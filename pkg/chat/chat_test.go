package chat

import (
	"testing"

	"locus/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) *string { return &s }

func TestStreamingReply(t *testing.T) {
	e := NewExchange()
	id := uuid.New()
	require.NoError(t, e.Send("ada", "hi"))
	assert.True(t, e.Waiting())

	events := []Response{
		{Content: nil, ID: id},
		{Content: text("Hel"), ID: id},
		{Content: text("lo"), ID: id},
		{Content: nil, ID: id, IsFinal: true},
	}
	for _, evt := range events {
		e.Receive(evt)
	}

	msgs := e.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, store.Message{Role: store.RoleUser, Name: "ada", Content: "hi"}, msgs[0])
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.False(t, e.Waiting())
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, id, e.ID())
}

func TestSendWhileWaitingIsRejected(t *testing.T) {
	e := NewExchange()
	require.NoError(t, e.Send("ada", "first"))
	assert.ErrorIs(t, e.Send("ada", "second"), ErrBusy)

	e.Receive(Response{Content: text("ok")})
	assert.Equal(t, Streaming, e.State())
	assert.ErrorIs(t, e.Send("ada", "third"), ErrBusy)

	e.Receive(Response{IsFinal: true})
	require.NoError(t, e.Send("ada", "fourth"))
	assert.Len(t, e.Messages(), 3)
}

func TestFinalChunkWithText(t *testing.T) {
	e := NewExchange()
	require.NoError(t, e.Send("ada", "q"))
	e.Receive(Response{Content: text("a")})
	e.Receive(Response{Content: text("b"), IsFinal: true})

	assert.Equal(t, "ab", e.Messages()[1].Content)
	assert.False(t, e.Waiting())
}

func TestEmptyReply(t *testing.T) {
	e := NewExchange()
	require.NoError(t, e.Send("ada", "q"))
	assert.True(t, e.Receive(Response{IsFinal: true}))
	assert.False(t, e.Waiting())
	assert.Len(t, e.Messages(), 1)
}

func TestUnsolicitedChunksIgnored(t *testing.T) {
	e := NewExchange()
	assert.False(t, e.Receive(Response{Content: text("stray")}))
	assert.Empty(t, e.Messages())
}

func TestAbort(t *testing.T) {
	e := NewExchange()
	require.NoError(t, e.Send("ada", "q"))
	e.Abort()
	assert.False(t, e.Waiting())
	require.NoError(t, e.Send("ada", "again"))
}

func TestLoadAndClear(t *testing.T) {
	e := NewExchange()
	require.NoError(t, e.Send("ada", "pending"))

	tr := store.Transcript{ID: uuid.New(), Messages: []store.Message{{Role: store.RoleUser, Content: "old"}}}
	e.Load(tr)
	assert.Equal(t, tr.ID, e.ID())
	assert.Equal(t, tr.Messages, e.Messages())
	assert.False(t, e.Waiting())

	tr.Messages[0].Content = "mutated"
	assert.Equal(t, "old", e.Messages()[0].Content)

	e.Clear()
	assert.Equal(t, uuid.Nil, e.ID())
	assert.Empty(t, e.Messages())
}

func TestLibrary(t *testing.T) {
	a := store.Transcript{ID: uuid.New(), Messages: []store.Message{{Content: "beta"}}}
	b := store.Transcript{ID: uuid.New(), Messages: []store.Message{{Content: "alpha"}}}

	l := NewLibrary()
	l.SetAll([]store.Transcript{a, b})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []store.Transcript{b, a}, l.List())

	got, ok := l.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, a, got)

	l.SetAll(nil)
	assert.Equal(t, 0, l.Len())
	l.Put(a)
	assert.Equal(t, 1, l.Len())
}
