package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/repository/memory"
	"locus/pkg/events"
	natsbus "locus/pkg/nats"
	"locus/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu    sync.Mutex
	names []string
	data  []interface{}
}

func (h *recordingHub) Broadcast(event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.names = append(h.names, event)
	h.data = append(h.data, data)
}

type capturingSubscriber struct {
	subject string
	durable string
	handler natsbus.EventHandler
}

func (s *capturingSubscriber) Subscribe(_ context.Context, subject, durable string, handler natsbus.EventHandler) error {
	s.subject, s.durable, s.handler = subject, durable, handler
	return nil
}

func TestCatalogUpdateService(t *testing.T) {
	ctx := context.Background()
	hub := &recordingHub{}
	sub := &capturingSubscriber{}
	cache := memory.NewCatalogCache(time.Minute)
	cache.SetDocuments([]store.Document{{ID: uuid.New()}})
	m := metrics.New()

	svc := NewCatalogUpdateService(sub, hub, cache, m, logger.NewNop())
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, "events.>", sub.subject)
	require.NotNil(t, sub.handler)

	docID := uuid.New()
	require.NoError(t, sub.handler(ctx, events.NewContentEvent(events.HighlightCreated, docID, nil)))

	require.Equal(t, []string{dto.EventContentUpdated}, hub.names)
	assert.Equal(t, dto.ContentUpdated{Reason: "highlight_created", DocId: docID}, hub.data[0])
	_, cached := cache.Documents()
	assert.False(t, cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogEventsTotal.WithLabelValues(events.HighlightCreated)))
}

func TestConsumerService_SavesQueuedTranscripts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := newMemStore()
	chat := db.put(entity.Content{Title: "Chat Session", ContentType: entity.ContentTypeChat})
	bus := &recordingBus{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, "transcripts", db, memory.NewCatalogCache(time.Minute), bus, logger.NewNop())
	require.NoError(t, consumer.Consume(ctx))

	payload, err := json.Marshal(dto.PersistTranscriptMessage{
		ChatId: chat.Id,
		Chat:   entity.ChatLog{Messages: []entity.ChatMessage{{Role: "user", Content: "hi"}}},
	})
	require.NoError(t, err)
	require.NoError(t, NewPublisherService("transcripts", pubSub).Publish(ctx, payload))

	require.Eventually(t, func() bool {
		return len(bus.types()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, events.ChatSaved, bus.types()[0])
	assert.Contains(t, string(db.get(chat.Id).Metadata), `"hi"`)
}
