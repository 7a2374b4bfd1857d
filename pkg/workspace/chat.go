package workspace

import (
	"context"
	"fmt"

	"locus/pkg/chat"
	"locus/pkg/client"
	"locus/pkg/store"

	"github.com/google/uuid"
)

// SendMessage asks the assistant about the open document, optionally
// quoting the current highlight.
func (w *Workspace) SendMessage(text string, includeHighlight bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.channel == nil {
		return w.fail("send message", ErrOffline)
	}

	name := "anonymous"
	if w.user != nil {
		name = w.user.Username
	}
	if err := w.exchange.Send(name, text); err != nil {
		return w.fail("send message", err)
	}

	s := w.session.Session()
	msg := client.UserMessage{
		Content: text,
		Doc: client.DocContext{
			Title:   s.Title,
			Type:    s.Type,
			Authors: s.Authors,
		},
	}
	if s.ID != nil {
		if doc, ok := w.catalog.Find(*s.ID); ok {
			msg.Doc.Summary = doc.Summary
		}
	}
	if includeHighlight {
		if h, ok := w.currentHighlight(); ok {
			msg.Highlight = h.Text
		}
	}
	if id := w.exchange.ID(); id != uuid.Nil {
		msg.ID = &id
	}

	if err := w.channel.Send(msg); err != nil {
		w.exchange.Abort()
		return w.fail("send message", err)
	}
	return nil
}

// HandleResponse applies a streamed chunk of the assistant's reply. A
// finished reply is kept in the transcript library.
func (w *Workspace) HandleResponse(r chat.Response) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.exchange.Receive(r) {
		w.log.Debug(module, "Ignored chat chunk", map[string]interface{}{"id": r.ID.String(), "is_final": r.IsFinal})
		return
	}
	if r.IsFinal && w.exchange.ID() != uuid.Nil {
		w.chats.Put(w.exchange.Transcript())
	}
}

// HandleEvent applies an event from the socket.
func (w *Workspace) HandleEvent(ctx context.Context, evt client.Event) error {
	switch evt.Name {
	case client.EventLLMResponse:
		w.HandleResponse(evt.Response)
		return nil
	case client.EventContentUpdated:
		w.mu.Lock()
		defer w.mu.Unlock()
		if err := w.refreshCatalog(ctx); err != nil {
			return err
		}
		return w.refreshHighlights(ctx)
	case client.EventError:
		w.mu.Lock()
		defer w.mu.Unlock()
		// the reply being waited for will not come
		w.exchange.Abort()
		return w.fail("assistant", evt.Error)
	}
	return nil
}

// Messages is the live conversation.
func (w *Workspace) Messages() []store.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exchange.Messages()
}

// Waiting reports whether an answer is still streaming in.
func (w *Workspace) Waiting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exchange.Waiting()
}

// Chats lists the stored conversations.
func (w *Workspace) Chats() []store.Transcript {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chats.List()
}

// LoadChat resumes a stored conversation.
func (w *Workspace) LoadChat(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.chats.Get(id)
	if !ok {
		return w.fail("load chat", fmt.Errorf("%w: chat %s", ErrNotFound, id))
	}
	w.exchange.Load(t)
	return nil
}

// NewChat starts a fresh conversation.
func (w *Workspace) NewChat() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exchange.Clear()
}
