// Package client talks to the locus server: the HTTP endpoints, the
// real-time chat socket, and the locally persisted login.
package client

import (
	"encoding/json"

	"locus/pkg/store"

	"github.com/google/uuid"
)

// envelope is the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HighlightContent describes the highlighted span.
type HighlightContent struct {
	DocID    uuid.UUID       `json:"doc_id"`
	Title    string          `json:"title"`
	Position json.RawMessage `json:"position"`
	Comment  string          `json:"comment,omitempty"`
}

type CreateHighlightRequest struct {
	Content       HighlightContent `json:"content"`
	HighlightText string           `json:"highlight_text"`
}

type SaveRequest struct {
	ID      *uuid.UUID        `json:"id"`
	Title   string            `json:"title"`
	Content string            `json:"content"`
	Type    store.ContentType `json:"type"`
	Delta   string            `json:"delta"`
	Authors []store.Author    `json:"authors"`
}

// SaveResult carries the refreshed catalog and the id of the saved document.
type SaveResult struct {
	Message      string           `json:"message"`
	Error        string           `json:"error,omitempty"`
	SavedContent []store.Document `json:"saved_content" validate:"dive"`
	ID           uuid.UUID        `json:"id"`
}

type DownloadRequest struct {
	ID          uuid.UUID         `json:"id"`
	ZoteroKey   string            `json:"zotero_key"`
	ContentType store.ContentType `json:"content_type"`
}

type SyncResult struct {
	Version int `json:"version"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authResult struct {
	Message string     `json:"message"`
	User    store.User `json:"user"`
}
