package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentType is the kind of a catalog entry.
type ContentType string

const (
	TypeNote              ContentType = "note"
	TypeSummary           ContentType = "summary"
	TypeTranscript        ContentType = "chat"
	TypeExternalReference ContentType = "zotero_entry"

	// Server-side only, never loaded into an editing session.
	TypeHighlight        ContentType = "highlight"
	TypeZoteroAttachment ContentType = "zotero_attachment"
)

// Editable reports whether documents of this type can be opened in a session.
func (t ContentType) Editable() bool {
	switch t {
	case TypeNote, TypeSummary, TypeTranscript, TypeExternalReference:
		return true
	}
	return false
}

// RichText reports whether the payload of this type is a serialized delta.
func (t ContentType) RichText() bool {
	return t.Editable() && t != TypeExternalReference
}

type Author struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// Document is a catalog entry as served by the content collaborator.
// Delta carries the rich-text payload, Filename the attachment reference.
type Document struct {
	ID          uuid.UUID       `json:"id" validate:"required"`
	Title       string          `json:"title"`
	ContentType ContentType     `json:"content_type" validate:"required"`
	Authors     []Author        `json:"authors"`
	Delta       string          `json:"delta,omitempty"`
	Filename    string          `json:"filename,omitempty"`
	ZoteroKey   string          `json:"zotero_key,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Tags        string          `json:"tags,omitempty"`
	Metadata    json.RawMessage `json:"content_metadata,omitempty"`
	TimeCreated time.Time       `json:"time_created"`
}

// CloneAuthors returns an independent copy of the author slice.
func CloneAuthors(authors []Author) []Author {
	if authors == nil {
		return nil
	}
	out := make([]Author, len(authors))
	copy(out, authors)
	return out
}

// Catalog is the client-side list of documents.
type Catalog []Document

// Find returns the document with the given id.
func (c Catalog) Find(id uuid.UUID) (Document, bool) {
	for _, d := range c {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}
