package dto

import (
	"encoding/json"

	"locus/pkg/store"

	"github.com/google/uuid"
)

type AuthorRequest struct {
	Id        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// SaveQuillRequest saves a rich-text document. A nil or unknown Id creates
// one.
type SaveQuillRequest struct {
	Id      *uuid.UUID      `json:"id"`
	Title   string          `json:"title" validate:"required,max=255"`
	Content string          `json:"content"`
	Type    string          `json:"type" validate:"omitempty,oneof=note summary chat"`
	Delta   string          `json:"delta" validate:"required"`
	Authors []AuthorRequest `json:"authors" validate:"dive"`
}

type SaveQuillResponse struct {
	Message      string           `json:"message"`
	Error        string           `json:"error,omitempty"`
	SavedContent []store.Document `json:"saved_content"`
	Id           uuid.UUID        `json:"id"`
}

type HighlightContent struct {
	DocId    uuid.UUID       `json:"doc_id" validate:"required"`
	Title    string          `json:"title"`
	Position json.RawMessage `json:"position" validate:"required"`
	Comment  string          `json:"comment"`
}

type CreateHighlightRequest struct {
	Content       HighlightContent `json:"content"`
	HighlightText string           `json:"highlight_text" validate:"required"`
}

type DownloadRequest struct {
	Id          uuid.UUID `json:"id" validate:"required"`
	ZoteroKey   string    `json:"zotero_key"`
	ContentType string    `json:"content_type"`
}

type DownloadResponse struct {
	Filename string `json:"filename"`
}

type SyncResponse struct {
	Version int `json:"version"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}
