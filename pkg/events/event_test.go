package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestContentEvent(t *testing.T) {
	id := uuid.New()
	data := map[string]interface{}{"title": "Notes"}

	evt := NewContentEvent(ContentSaved, id, data)
	assert.Equal(t, ContentSaved, evt.EventType())
	assert.Equal(t, "Notes", evt.Payload()["title"])
	assert.Equal(t, id, DocID(evt))
	assert.NotContains(t, data, "doc_id")
	assert.False(t, evt.Timestamp().IsZero())

	whole := NewContentEvent(ZoteroSynced, uuid.Nil, nil)
	assert.Equal(t, uuid.Nil, DocID(whole))
}
