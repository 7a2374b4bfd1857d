package events

import (
	"time"

	"github.com/google/uuid"
)

// Catalog events published on the bus.
const (
	HighlightCreated     = "HIGHLIGHT_CREATED"
	ContentSaved         = "CONTENT_SAVED"
	ChatSaved            = "CHAT_SAVED"
	ZoteroSynced         = "ZOTERO_SYNCED"
	AttachmentDownloaded = "ATTACHMENT_DOWNLOADED"
)

// Event is the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CONTENT_SAVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewContentEvent reports a change to the catalog entry docID. A nil id
// stands for the whole catalog.
func NewContentEvent(eventType string, docID uuid.UUID, data map[string]interface{}) BaseEvent {
	payload := map[string]interface{}{}
	for k, v := range data {
		payload[k] = v
	}
	if docID != uuid.Nil {
		payload["doc_id"] = docID.String()
	}
	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now(),
	}
}

// DocID reads the document id carried by a content event.
func DocID(e Event) uuid.UUID {
	s, _ := e.Payload()["doc_id"].(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
