package dto

import (
	"encoding/json"

	"locus/internal/entity"
	"locus/pkg/store"

	"github.com/google/uuid"
)

// Socket events.
const (
	EventUserMessage    = "user_message"
	EventLLMResponse    = "llm_response"
	EventContentUpdated = "content_updated"
	EventError          = "error"
)

// SocketEnvelope frames every socket message in both directions.
type SocketEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type DocContext struct {
	Title   string         `json:"title"`
	Type    string         `json:"type"`
	Authors []store.Author `json:"authors"`
	Summary string         `json:"summary"`
}

type UserMessage struct {
	Content   string     `json:"content" validate:"required"`
	Doc       DocContext `json:"doc"`
	Highlight string     `json:"highlight"`
	Id        *uuid.UUID `json:"id"`
}

// LLMResponse is one streamed chunk of a reply. Content is null on the
// closing chunk.
type LLMResponse struct {
	Content *string   `json:"content"`
	IsFinal bool      `json:"is_final"`
	Id      uuid.UUID `json:"id"`
}

type ContentUpdated struct {
	Reason string    `json:"reason"`
	DocId  uuid.UUID `json:"doc_id"`
}

type SocketError struct {
	Message string `json:"message"`
}

// PersistTranscriptMessage asks the transcript consumer to store a
// conversation after a reply finished streaming.
type PersistTranscriptMessage struct {
	ChatId uuid.UUID      `json:"chat_id"`
	Chat   entity.ChatLog `json:"chat"`
}
