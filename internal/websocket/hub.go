package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"locus/internal/dto"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

type Hub struct {
	// Connected clients
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client
	// instance tags our own cluster messages so they are not delivered twice
	instance string

	metrics *metrics.Metrics
	logger  logger.ILogger
}

// clusterMessage is what instances exchange over redis.
type clusterMessage struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, m *metrics.Metrics, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rdb:        rdb,
		instance:   uuid.NewString(),
		metrics:    m,
		logger:     log,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.SocketConnections.Inc()
			}
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user": client.UserName})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				if h.metrics != nil {
					h.metrics.SocketConnections.Dec()
				}
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user": client.UserName})
			}
			h.mu.Unlock()
		}
	}
}

// Count is the number of clients connected to this instance.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client of every instance.
func (h *Hub) Broadcast(event string, data interface{}) {
	// 1. Serialize
	message, err := encodeEnvelope(event, data)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode broadcast", map[string]interface{}{"event": event, "error": err.Error()})
		return
	}

	// 2. Local clients
	h.deliver(message)

	// 3. Other instances
	if h.rdb != nil {
		payload, err := h.clusterPayload(message)
		if err != nil {
			h.logger.Error("Hub", "Failed to encode cluster event", map[string]interface{}{"error": err.Error()})
			return
		}
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish cluster event", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.send(message) {
			h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"user": client.UserName})
			go h.drop(client)
		}
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if message, ok := h.fromCluster(msg.Payload); ok {
				h.deliver(message)
			}
		}
	}
}

// fromCluster unwraps a message published by another instance. Our own
// messages were delivered locally when they were broadcast.
func (h *Hub) fromCluster(payload string) ([]byte, bool) {
	var msg clusterMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if msg.Origin == h.instance || len(msg.Message) == 0 {
		return nil, false
	}
	return msg.Message, true
}

func (h *Hub) clusterPayload(message []byte) ([]byte, error) {
	return json.Marshal(clusterMessage{Origin: h.instance, Message: message})
}

func encodeEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto.SocketEnvelope{Event: event, Data: raw})
}
