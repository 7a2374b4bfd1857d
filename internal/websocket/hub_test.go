package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, *metrics.Metrics, context.CancelFunc) {
	t.Helper()
	m := metrics.New()
	hub := NewHub(nil, m, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, m, cancel
}

func connect(t *testing.T, hub *Hub, name string) *Client {
	t.Helper()
	c := newClient(hub, nil, name, nil)
	require.True(t, hub.add(c))
	return c
}

func fill(t *testing.T, c *Client) {
	t.Helper()
	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.send([]byte(`{}`)))
	}
	require.False(t, c.send([]byte(`{}`)))
}

func isClosed(c *Client) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubBroadcast(t *testing.T) {
	hub, m, _ := runHub(t)
	a := connect(t, hub, "ada")
	b := connect(t, hub, "grace")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SocketConnections))

	docID := uuid.New()
	hub.Broadcast(dto.EventContentUpdated, dto.ContentUpdated{Reason: "CONTENT_SAVED", DocId: docID})

	for _, c := range []*Client{a, b} {
		var env dto.SocketEnvelope
		require.NoError(t, json.Unmarshal(<-c.sendCh, &env))
		assert.Equal(t, dto.EventContentUpdated, env.Event)

		var data dto.ContentUpdated
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, docID, data.DocId)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	tests := []struct {
		name string
		push func(hub *Hub, c *Client)
	}{
		{
			name: "broadcast",
			push: func(hub *Hub, _ *Client) {
				hub.Broadcast(dto.EventContentUpdated, dto.ContentUpdated{Reason: "ZOTERO_SYNCED"})
			},
		},
		{
			name: "reply",
			push: func(_ *Hub, c *Client) {
				c.emitError("late")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, m, _ := runHub(t)
			slow := connect(t, hub, "slow")
			fast := connect(t, hub, "fast")
			require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

			fill(t, slow)
			tt.push(hub, slow)

			require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
			assert.True(t, isClosed(slow))
			assert.False(t, isClosed(fast))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.SocketConnections))

			// what was queued before the drop is still flushed, then the
			// channel ends
			n := 0
			for range slow.sendCh {
				n++
			}
			assert.Equal(t, sendBuffer, n)
		})
	}
}

func TestHubStop(t *testing.T) {
	hub, _, cancel := runHub(t)
	c := connect(t, hub, "ada")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, isClosed(c))
	assert.False(t, hub.add(newClient(hub, nil, "late", nil)))

	done := make(chan struct{})
	go func() {
		hub.drop(c)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drop blocked on a stopped hub")
	}
}

func TestHubClusterOrigin(t *testing.T) {
	local := NewHub(nil, nil, logger.NewNop())
	remote := NewHub(nil, nil, logger.NewNop())

	message, err := encodeEnvelope(dto.EventContentUpdated, dto.ContentUpdated{Reason: "HIGHLIGHT_CREATED"})
	require.NoError(t, err)
	payload, err := local.clusterPayload(message)
	require.NoError(t, err)

	tests := []struct {
		name    string
		hub     *Hub
		payload string
		want    []byte
	}{
		{name: "own message", hub: local, payload: string(payload)},
		{name: "other instance", hub: remote, payload: string(payload), want: message},
		{name: "malformed", hub: remote, payload: "not json"},
		{name: "empty message", hub: remote, payload: `{"origin":"elsewhere"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.hub.fromCluster(tt.payload)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.JSONEq(t, string(tt.want), string(got))
		})
	}
}
