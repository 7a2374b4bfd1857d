package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/pkg/logger"
	"locus/internal/service"
	"locus/pkg/store"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heldChat answers "answer" once release is closed.
type heldChat struct {
	started chan struct{}
	release chan struct{}
	err     error
	calls   atomic.Int32
}

func newHeldChat() *heldChat {
	return &heldChat{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (h *heldChat) List(context.Context) ([]store.Transcript, error) { return nil, nil }

func (h *heldChat) Converse(ctx context.Context, _ string, _ *dto.UserMessage, emit service.EmitFunc) (uuid.UUID, error) {
	h.calls.Add(1)
	h.started <- struct{}{}
	select {
	case <-h.release:
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
	if h.err != nil {
		return uuid.Nil, h.err
	}
	id := uuid.New()
	content := "answer"
	if err := emit(dto.LLMResponse{Content: &content, Id: id}); err != nil {
		return id, err
	}
	return id, emit(dto.LLMResponse{IsFinal: true, Id: id})
}

func userMessage(t *testing.T, content string) []byte {
	t.Helper()
	data, err := json.Marshal(dto.UserMessage{Content: content})
	require.NoError(t, err)
	out, err := json.Marshal(dto.SocketEnvelope{Event: dto.EventUserMessage, Data: data})
	require.NoError(t, err)
	return out
}

func nextEnvelope(t *testing.T, c *Client) dto.SocketEnvelope {
	t.Helper()
	select {
	case raw := <-c.sendCh:
		var env dto.SocketEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("nothing was sent")
		return dto.SocketEnvelope{}
	}
}

func errorMessage(t *testing.T, env dto.SocketEnvelope) string {
	t.Helper()
	require.Equal(t, dto.EventError, env.Event)
	var e dto.SocketError
	require.NoError(t, json.Unmarshal(env.Data, &e))
	return e.Message
}

func waitStarted(t *testing.T, chat *heldChat) {
	t.Helper()
	select {
	case <-chat.started:
	case <-time.After(2 * time.Second):
		t.Fatal("conversation did not start")
	}
}

func TestClientOneReplyAtATime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chat := newHeldChat()
	c := newClient(NewHub(nil, nil, logger.NewNop()), nil, "ada", chat)

	c.handle(ctx, userMessage(t, "first"))
	waitStarted(t, chat)

	// a second question while the first reply streams is refused
	c.handle(ctx, userMessage(t, "second"))
	assert.Equal(t, "A reply is still streaming", errorMessage(t, nextEnvelope(t, c)))
	assert.EqualValues(t, 1, chat.calls.Load())

	close(chat.release)
	assert.Equal(t, dto.EventLLMResponse, nextEnvelope(t, c).Event)
	final := nextEnvelope(t, c)
	require.Equal(t, dto.EventLLMResponse, final.Event)
	var resp dto.LLMResponse
	require.NoError(t, json.Unmarshal(final.Data, &resp))
	assert.True(t, resp.IsFinal)
	assert.Nil(t, resp.Content)

	// the gate opens once the reply is done
	require.Eventually(t, func() bool { return len(c.busy) == 0 }, time.Second, 5*time.Millisecond)
	c.handle(ctx, userMessage(t, "third"))
	waitStarted(t, chat)
	assert.Equal(t, dto.EventLLMResponse, nextEnvelope(t, c).Event)
	assert.EqualValues(t, 2, chat.calls.Load())
}

func TestClientRejectsBadMessages(t *testing.T) {
	failing := newHeldChat()
	failing.err = errors.New("llm down")
	close(failing.release)

	tests := []struct {
		name string
		chat *heldChat
		data []byte
		want string
	}{
		{name: "not json", chat: newHeldChat(), data: []byte("hello"), want: "Malformed message"},
		{name: "bad payload", chat: newHeldChat(), data: []byte(`{"event":"user_message","data":"hi"}`), want: "Malformed user_message"},
		{name: "no content", chat: newHeldChat(), data: userMessage(t, ""), want: "Content"},
		{name: "assistant fails", chat: failing, data: userMessage(t, "hi"), want: "The assistant could not answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(NewHub(nil, nil, logger.NewNop()), nil, "ada", tt.chat)
			c.handle(context.Background(), tt.data)
			assert.Contains(t, errorMessage(t, nextEnvelope(t, c)), tt.want)
		})
	}
}

func TestClientIgnoresUnknownEvents(t *testing.T) {
	chat := newHeldChat()
	c := newClient(NewHub(nil, nil, logger.NewNop()), nil, "ada", chat)

	c.handle(context.Background(), []byte(`{"event":"typing","data":{}}`))

	assert.Empty(t, c.sendCh)
	assert.EqualValues(t, 0, chat.calls.Load())
}

func TestServeWs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, nil, logger.NewNop())
	go hub.Run(ctx)

	chat := newHeldChat()
	close(chat.release)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		ServeWs(ctx, hub, conn, "ada", chat)
	}))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	defer app.Shutdown()

	conn, _, err := fws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(fws.TextMessage, userMessage(t, "hi")))

	var chunks []dto.LLMResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(chunks) < 2 {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var env dto.SocketEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		require.Equal(t, dto.EventLLMResponse, env.Event)
		var resp dto.LLMResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		chunks = append(chunks, resp)
	}
	require.NotNil(t, chunks[0].Content)
	assert.Equal(t, "answer", *chunks[0].Content)
	assert.True(t, chunks[1].IsFinal)

	// leaving unregisters the peer
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
