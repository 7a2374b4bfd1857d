package store

import "github.com/google/uuid"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// Transcript is a stored conversation.
type Transcript struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages" validate:"dive"`
}

// Label is a short human name for a transcript: the start of its first
// message, or a generic name when it has none.
func (t Transcript) Label() string {
	if len(t.Messages) > 0 && t.Messages[0].Content != "" {
		r := []rune(t.Messages[0].Content)
		if len(r) > 30 {
			r = r[:30]
		}
		return string(r)
	}
	return "Chat " + t.ID.String()
}
