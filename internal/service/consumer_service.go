package service

import (
	"context"
	"encoding/json"

	"locus/internal/dto"
	"locus/internal/mapper"
	"locus/internal/pkg/logger"
	"locus/internal/repository/memory"
	"locus/internal/repository/unitofwork"
	"locus/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService stores chat transcripts queued by the chat service.
type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	cache          *memory.CatalogCache
	eventPublisher EventPublisher
	logger         logger.ILogger
	mapper         *mapper.ContentMapper
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.CatalogCache,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		uowFactory:     uowFactory,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         log,
		mapper:         mapper.NewContentMapper(),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PersistTranscriptMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ChatId == uuid.Nil {
		cs.logger.Error("TranscriptConsumer", "Dropping malformed message", map[string]interface{}{"message_id": msg.UUID})
		msg.Ack()
		return
	}

	if err := saveTranscript(ctx, cs.uowFactory, cs.mapper, payload.ChatId, payload.Chat); err != nil {
		cs.logger.Error("TranscriptConsumer", "Failed to save transcript", map[string]interface{}{"chat_id": payload.ChatId.String(), "error": err.Error()})
		msg.Nack()
		return
	}

	cs.cache.Invalidate()
	publishEvent(ctx, cs.eventPublisher, cs.logger, events.NewContentEvent(events.ChatSaved, payload.ChatId, map[string]interface{}{
		"messages": len(payload.Chat.Messages),
	}))
	cs.logger.Debug("TranscriptConsumer", "Transcript saved", map[string]interface{}{"chat_id": payload.ChatId.String()})
	msg.Ack()
}
