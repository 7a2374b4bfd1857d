package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Highlight is a persisted annotation on a document. Position is produced by
// the attachment viewer and passed through untouched.
type Highlight struct {
	ID          uuid.UUID       `json:"id" validate:"required"`
	DocID       uuid.UUID       `json:"doc_id" validate:"required"`
	Title       string          `json:"title"`
	Position    json.RawMessage `json:"position"`
	Text        string          `json:"text"`
	Comment     string          `json:"comment,omitempty"`
	TimeCreated time.Time       `json:"time_created"`
}
