// Package chat tracks a conversation with the assistant while replies stream
// in, and the library of stored transcripts.
package chat

import (
	"errors"

	"locus/pkg/store"

	"github.com/google/uuid"
)

var ErrBusy = errors.New("chat: waiting for the assistant to finish")

type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// Response is one streamed chunk of an assistant reply. A nil Content is a
// control chunk carrying no text.
type Response struct {
	Content *string   `json:"content"`
	ID      uuid.UUID `json:"id"`
	IsFinal bool      `json:"is_final"`
}

// Exchange is the live conversation.
type Exchange struct {
	id       uuid.UUID
	messages []store.Message
	state    State
	waiting  bool
}

func NewExchange() *Exchange {
	return &Exchange{}
}

// ID is the conversation id, uuid.Nil until the server assigns one.
func (e *Exchange) ID() uuid.UUID { return e.id }

func (e *Exchange) State() State { return e.state }

// Waiting reports whether a sent message has not been fully answered yet.
func (e *Exchange) Waiting() bool { return e.waiting }

// Messages returns a copy of the transcript so far.
func (e *Exchange) Messages() []store.Message {
	out := make([]store.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Send appends a user message and starts waiting for the reply. It is
// rejected, not queued, while a reply is outstanding.
func (e *Exchange) Send(name, text string) error {
	if e.waiting {
		return ErrBusy
	}
	e.messages = append(e.messages, store.Message{Role: store.RoleUser, Name: name, Content: text})
	e.waiting = true
	return nil
}

// Abort stops waiting for a reply that will never come, e.g. after the
// message failed to send.
func (e *Exchange) Abort() {
	e.waiting = false
	e.state = Idle
}

// Receive applies a streamed chunk and reports whether it changed anything.
// Chunks that arrive while nothing is awaited are ignored.
func (e *Exchange) Receive(r Response) bool {
	if !e.waiting {
		return false
	}

	switch e.state {
	case Idle:
		if r.Content == nil {
			if r.IsFinal {
				// the reply ended before any text arrived
				e.waiting = false
				return true
			}
			return false
		}
		e.messages = append(e.messages, store.Message{Role: store.RoleAssistant, Name: "llm", Content: *r.Content})
		if r.ID != uuid.Nil {
			e.id = r.ID
		}
		e.state = Streaming
	case Streaming:
		if r.Content != nil {
			e.messages[len(e.messages)-1].Content += *r.Content
		}
	}

	if r.IsFinal {
		e.waiting = false
		e.state = Idle
	}
	return true
}

// Load replaces the conversation with a stored transcript.
func (e *Exchange) Load(t store.Transcript) {
	e.id = t.ID
	e.messages = make([]store.Message, len(t.Messages))
	copy(e.messages, t.Messages)
	e.state = Idle
	e.waiting = false
}

// Clear starts a new conversation.
func (e *Exchange) Clear() {
	*e = Exchange{}
}

// Transcript returns the conversation as a stored transcript.
func (e *Exchange) Transcript() store.Transcript {
	return store.Transcript{ID: e.id, Messages: e.Messages()}
}
