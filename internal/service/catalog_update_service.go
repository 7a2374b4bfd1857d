package service

import (
	"context"
	"strings"

	"locus/internal/dto"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/repository/memory"
	"locus/pkg/events"
	natsbus "locus/pkg/nats"
)

const catalogUpdateDurable = "catalog-update"

// Broadcaster fans a socket event out to every connected client.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// EventSubscriber is the bus side of the catalog update service.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler natsbus.EventHandler) error
}

type ICatalogUpdateService interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
}

// catalogUpdateService tells connected clients to refresh when the
// catalog changes.
type catalogUpdateService struct {
	subscriber EventSubscriber
	hub        Broadcaster
	cache      *memory.CatalogCache
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewCatalogUpdateService(
	subscriber EventSubscriber,
	hub Broadcaster,
	cache *memory.CatalogCache,
	m *metrics.Metrics,
	log logger.ILogger,
) ICatalogUpdateService {
	return &catalogUpdateService{
		subscriber: subscriber,
		hub:        hub,
		cache:      cache,
		metrics:    m,
		logger:     log,
	}
}

func (s *catalogUpdateService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, natsbus.Subject(">"), catalogUpdateDurable, s.Handle)
}

func (s *catalogUpdateService) Handle(ctx context.Context, event events.Event) error {
	if s.metrics != nil {
		s.metrics.CatalogEventsTotal.WithLabelValues(event.EventType()).Inc()
	}

	// Another instance may have written the row.
	s.cache.Invalidate()

	update := dto.ContentUpdated{
		Reason: strings.ToLower(event.EventType()),
		DocId:  events.DocID(event),
	}
	s.hub.Broadcast(dto.EventContentUpdated, update)

	s.logger.Debug("CatalogUpdate", "Broadcast catalog change", map[string]interface{}{
		"type":   event.EventType(),
		"doc_id": update.DocId.String(),
	})
	return nil
}

// localPublisher hands events straight to the catalog update service when
// no message bus is reachable.
type localPublisher struct {
	updates ICatalogUpdateService
}

func NewLocalPublisher(updates ICatalogUpdateService) EventPublisher {
	return &localPublisher{updates: updates}
}

func (p *localPublisher) Publish(ctx context.Context, event events.Event) error {
	return p.updates.Handle(ctx, event)
}
