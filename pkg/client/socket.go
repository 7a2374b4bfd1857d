package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"locus/pkg/chat"
	"locus/pkg/store"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

// Socket event names.
const (
	EventUserMessage    = "user_message"
	EventLLMResponse    = "llm_response"
	EventContentUpdated = "content_updated"
	EventError          = "error"
)

const writeWait = 10 * time.Second

// Envelope is the frame format of the socket: an event name and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DocContext tells the assistant which document a question is about.
type DocContext struct {
	Title   string            `json:"title"`
	Type    store.ContentType `json:"type"`
	Authors []store.Author    `json:"authors"`
	Summary string            `json:"summary"`
}

// UserMessage is sent to ask the assistant something. A nil ID starts a new
// conversation.
type UserMessage struct {
	Content   string     `json:"content"`
	Doc       DocContext `json:"doc"`
	Highlight string     `json:"highlight"`
	ID        *uuid.UUID `json:"id"`
}

// ContentUpdate announces that the catalog changed on the server.
type ContentUpdate struct {
	Reason string    `json:"reason"`
	DocID  uuid.UUID `json:"doc_id"`
}

// Event is one decoded inbound frame.
type Event struct {
	Name     string
	Response chat.Response
	Update   ContentUpdate
	Error    *SocketError
}

// Socket is the real-time channel to the server.
type Socket struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}

	writeMu sync.Mutex
	once    sync.Once
	closed  atomic.Bool
	errMu   sync.Mutex
	err     error
}

// DialSocket connects to the socket endpoint, authenticating with token
// when it is set.
func DialSocket(ctx context.Context, url, token string) (*Socket, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	s := &Socket{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events delivers inbound events until the connection ends.
func (s *Socket) Events() <-chan Event {
	return s.events
}

// Send emits a user_message.
func (s *Socket) Send(msg UserMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	frame, err := json.Marshal(Envelope{Event: EventUserMessage, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Err is the error that ended the connection, if any.
func (s *Socket) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.errMu.Lock()
				s.err = err
				s.errMu.Unlock()
			}
			return
		}

		// a frame may carry several envelopes back to back
		dec := json.NewDecoder(bytes.NewReader(data))
		for {
			var env Envelope
			if err := dec.Decode(&env); err != nil {
				// end of frame, or a malformed tail which is dropped
				break
			}
			evt, ok := decodeEvent(env)
			if !ok {
				continue
			}
			select {
			case <-s.done:
				return
			default:
			}
			select {
			case s.events <- evt:
			case <-s.done:
				return
			}
		}
	}
}

// decodeEvent turns an envelope into an Event, reporting false for unknown
// or malformed ones.
func decodeEvent(env Envelope) (Event, bool) {
	evt := Event{Name: env.Event}
	switch env.Event {
	case EventLLMResponse:
		if err := json.Unmarshal(env.Data, &evt.Response); err != nil {
			return Event{}, false
		}
	case EventContentUpdated:
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &evt.Update); err != nil {
				return Event{}, false
			}
		}
	case EventError:
		// kept even when the payload is unreadable, the failure still ends
		// whatever the caller is waiting for
		evt.Error = &SocketError{}
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, evt.Error)
		}
		if evt.Error.Message == "" {
			evt.Error.Message = "unknown server error"
		}
	default:
		return Event{}, false
	}
	return evt, true
}
