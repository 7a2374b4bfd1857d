package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"locus/internal/entity"
	"locus/pkg/delta"
	"locus/pkg/editor"
	"locus/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatRow(t *testing.T, metadata json.RawMessage) *entity.Content {
	t.Helper()
	return &entity.Content{
		Id:          uuid.New(),
		Title:       "Chat about Attention",
		ContentType: entity.ContentTypeChat,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
}

func TestToDocumentChatDelta(t *testing.T) {
	m := NewContentMapper()
	withMessages, err := m.ChatMetadata(entity.ChatLog{Messages: []entity.ChatMessage{
		{Role: "user", Name: "ada", Content: "What is a transformer?"},
		{Role: "assistant", Content: "A model built on attention.\nIt has no recurrence."},
	}})
	require.NoError(t, err)
	empty, err := m.ChatMetadata(entity.ChatLog{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		metadata json.RawMessage
		want     []string
	}{
		{
			name:     "messages",
			metadata: withMessages,
			want:     []string{"ada: What is a transformer?\n", "assistant: A model built on attention.\nIt has no recurrence.\n"},
		},
		{name: "empty log", metadata: empty},
		{name: "no metadata"},
		{name: "unreadable metadata", metadata: json.RawMessage(`{"chat":"nope"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := m.ToDocument(chatRow(t, tt.metadata))
			assert.Equal(t, store.ContentType(entity.ContentTypeChat), doc.ContentType)

			d, err := delta.Parse(doc.Delta)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, d.Text(), w)
			}
			if len(tt.want) == 0 {
				assert.Equal(t, "\n", d.Text())
			}

			// the row opens in the editor like any rich-text document
			st := editor.NewStore()
			require.NoError(t, st.Load(doc))
			assert.Equal(t, doc.Delta, st.Session().Delta)
		})
	}
}

func TestToDocumentChatNamesAreBold(t *testing.T) {
	m := NewContentMapper()
	metadata, err := m.ChatMetadata(entity.ChatLog{Messages: []entity.ChatMessage{
		{Role: "user", Name: "ada", Content: "hi"},
	}})
	require.NoError(t, err)

	d, err := delta.Parse(m.ToDocument(chatRow(t, metadata)).Delta)
	require.NoError(t, err)
	require.Len(t, d.Ops, 2)
	assert.Equal(t, "ada: ", d.Ops[0].Insert.Text)
	assert.Equal(t, true, d.Ops[0].Attributes["bold"])
	assert.Nil(t, d.Ops[1].Attributes)
}

func TestChatLogRoundTrip(t *testing.T) {
	m := NewContentMapper()
	hid := uuid.New()
	in := entity.ChatLog{
		Messages:   []entity.ChatMessage{{Role: "user", Name: "ada", Content: "hi"}},
		Highlights: []entity.ChatHighlight{{Text: "quoted", HighlightEntryId: &hid}},
	}
	metadata, err := m.ChatMetadata(in)
	require.NoError(t, err)

	out, err := m.ChatLog(chatRow(t, metadata))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	transcript := m.ToTranscript(chatRow(t, metadata))
	assert.Equal(t, []store.Message{{Role: "user", Name: "ada", Content: "hi"}}, transcript.Messages)
}

func TestToDocumentKeepsNoteDelta(t *testing.T) {
	m := NewContentMapper()
	note, err := delta.FromText("plain note").Encode()
	require.NoError(t, err)

	doc := m.ToDocument(&entity.Content{
		Id:          uuid.New(),
		Title:       "Note",
		ContentType: entity.ContentTypeNote,
		Delta:       note,
		Metadata:    json.RawMessage(`{"ignored":true}`),
	})
	assert.Equal(t, note, doc.Delta)
	assert.Nil(t, doc.Metadata)
}
