package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ContentTypeNote             = "note"
	ContentTypeSummary          = "summary"
	ContentTypeChat             = "chat"
	ContentTypeZoteroEntry      = "zotero_entry"
	ContentTypeZoteroAttachment = "zotero_attachment"
	ContentTypeHighlight        = "highlight"
)

type Content struct {
	Id            uuid.UUID
	ZoteroKey     string
	ZoteroVersion int
	Metadata      json.RawMessage
	Title         string
	ContentType   string
	Delta         string
	Filename      string
	Summary       string
	Tags          string
	DocId         *uuid.UUID
	Authors       []Author
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

type Author struct {
	Id        uuid.UUID
	FirstName string
	LastName  string
}

// HighlightMetadata is stored in the metadata of a highlight row.
type HighlightMetadata struct {
	Position json.RawMessage `json:"position"`
	Text     string          `json:"text"`
}

// ChatMetadata is stored in the metadata of a chat row.
type ChatMetadata struct {
	Chat ChatLog `json:"chat"`
}

type ChatLog struct {
	Messages   []ChatMessage   `json:"messages"`
	Highlights []ChatHighlight `json:"highlights"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// ChatHighlight is a highlight quoted in a conversation.
type ChatHighlight struct {
	Text             string     `json:"text"`
	HighlightEntryId *uuid.UUID `json:"highlight_entry_id,omitempty"`
}

type ZoteroVersion struct {
	Version   int
	Timestamp time.Time
}
