package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"locus/internal/dto"
	"locus/internal/pkg/serverutils"
	"locus/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserName is the display name used in conversations.
	UserName string

	chat service.IChatService

	// Buffered channel of outbound messages.
	sendCh chan []byte
	mu     sync.Mutex
	closed bool

	// busy holds one token while a reply is streaming.
	busy chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userName string, chat service.IChatService) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		UserName: userName,
		chat:     chat,
		sendCh:   make(chan []byte, sendBuffer),
		busy:     make(chan struct{}, 1),
	}
}

// send queues a message without blocking. It reports false when the
// buffer is full.
func (c *Client) send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.sendCh <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.sendCh)
	}
}

func (c *Client) emit(event string, data interface{}) error {
	message, err := encodeEnvelope(event, data)
	if err != nil {
		return err
	}
	if !c.send(message) {
		c.Hub.drop(c)
	}
	return nil
}

// readPump pumps messages from the websocket connection to the chat
// service.
func (c *Client) readPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.Hub.drop(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user": c.UserName, "error": err.Error()})
			}
			return
		}
		c.handle(ctx, data)
	}
}

func (c *Client) handle(ctx context.Context, data []byte) {
	var env dto.SocketEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.emitError("Malformed message")
		return
	}

	switch env.Event {
	case dto.EventUserMessage:
		var msg dto.UserMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.emitError("Malformed user_message")
			return
		}
		if err := serverutils.ValidateRequest(msg); err != nil {
			c.emitError(err.Error())
			return
		}

		select {
		case c.busy <- struct{}{}:
		default:
			c.emitError("A reply is still streaming")
			return
		}
		go func() {
			defer func() { <-c.busy }()
			c.converse(ctx, &msg)
		}()

	default:
		c.Hub.logger.Debug("Client", "Ignoring socket event", map[string]interface{}{"event": env.Event})
	}
}

func (c *Client) converse(ctx context.Context, msg *dto.UserMessage) {
	emit := func(resp dto.LLMResponse) error {
		return c.emit(dto.EventLLMResponse, resp)
	}
	if _, err := c.chat.Converse(ctx, c.UserName, msg, emit); err != nil {
		c.Hub.logger.Error("Client", "Conversation failed", map[string]interface{}{"user": c.UserName, "error": err.Error()})
		c.emitError("The assistant could not answer")
	}
}

func (c *Client) emitError(message string) {
	_ = c.emit(dto.EventError, dto.SocketError{Message: message})
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.sendCh:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One envelope per frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
