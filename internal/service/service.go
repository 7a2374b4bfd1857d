package service

import (
	"context"
	"errors"

	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/pkg/events"
)

// ErrUnavailable reports a dependency that was not configured.
var ErrUnavailable = errors.New("service unavailable")

// EventPublisher puts domain events on the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// publishEvent sends evt when a bus is configured. Failures are logged
// and do not fail the request.
func publishEvent(ctx context.Context, pub EventPublisher, log logger.ILogger, evt events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Warn("EventBus", "Failed to publish event", map[string]interface{}{"type": evt.EventType(), "error": err.Error()})
	}
}

func recordCacheLookup(m *metrics.Metrics, list string, hit bool) {
	if m != nil {
		m.RecordCacheLookup(list, hit)
	}
}
