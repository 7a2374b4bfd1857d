package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"locus/internal/constant"
	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/mapper"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/repository/memory"
	"locus/internal/repository/specification"
	"locus/internal/repository/unitofwork"
	"locus/pkg/llm"
	"locus/pkg/store"

	"github.com/google/uuid"
)

// EmitFunc delivers one reply chunk to the asking client.
type EmitFunc func(resp dto.LLMResponse) error

type IChatService interface {
	List(ctx context.Context) ([]store.Transcript, error)
	// Converse answers msg, streaming the reply through emit, and returns
	// the id of the conversation.
	Converse(ctx context.Context, userName string, msg *dto.UserMessage, emit EmitFunc) (uuid.UUID, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	cache            *memory.CatalogCache
	metrics          *metrics.Metrics
	logger           logger.ILogger
	mapper           *mapper.ContentMapper
	temperature      float64
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	cache *memory.CatalogCache,
	m *metrics.Metrics,
	log logger.ILogger,
	temperature float64,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		cache:            cache,
		metrics:          m,
		logger:           log,
		mapper:           mapper.NewContentMapper(),
		temperature:      temperature,
	}
}

func (s *chatService) List(ctx context.Context) ([]store.Transcript, error) {
	if chats, ok := s.cache.Chats(); ok {
		recordCacheLookup(s.metrics, "chats", true)
		return chats, nil
	}
	recordCacheLookup(s.metrics, "chats", false)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	contents, err := uow.ContentRepository().FindAll(ctx,
		specification.ByContentType{ContentType: entity.ContentTypeChat},
		specification.Oldest{},
	)
	if err != nil {
		return nil, err
	}

	chats := s.mapper.ToTranscripts(contents)
	s.cache.SetChats(chats)
	return chats, nil
}

func (s *chatService) Converse(ctx context.Context, userName string, msg *dto.UserMessage, emit EmitFunc) (uuid.UUID, error) {
	if s.llmProvider == nil {
		return uuid.Nil, fmt.Errorf("assistant: %w", ErrUnavailable)
	}

	// 1. Load or start the conversation
	chatID, chatLog, err := s.openChat(ctx, msg.Id)
	if err != nil {
		return uuid.Nil, err
	}

	// 2. Append the question
	text := msg.Content
	if msg.Highlight != "" {
		text = strings.TrimSpace(text + " " + explainMessage(msg.Doc, msg.Highlight))
		chatLog.Highlights = append(chatLog.Highlights, entity.ChatHighlight{Text: msg.Highlight})
	}
	chatLog.Messages = append(chatLog.Messages, entity.ChatMessage{
		Role:    constant.ChatMessageRoleUser,
		Name:    userName,
		Content: text,
	})

	history := make([]llm.Message, 0, len(chatLog.Messages)+1)
	history = append(history, llm.Message{Role: constant.ChatMessageRoleSystem, Content: constant.ChatSystemPrompt})
	for _, m := range chatLog.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	// 3. Stream the reply
	var reply strings.Builder
	streamErr := s.llmProvider.Stream(ctx, history, func(chunk string) error {
		reply.WriteString(chunk)
		if s.metrics != nil {
			s.metrics.ChatChunksTotal.Inc()
		}
		content := chunk
		return emit(dto.LLMResponse{Content: &content, Id: chatID})
	}, llm.WithTemperature(s.temperature))
	if s.metrics != nil {
		s.metrics.RecordStream(streamErr)
	}

	// The closing chunk is sent even after a failure so the client stops
	// waiting.
	finalErr := emit(dto.LLMResponse{Content: nil, IsFinal: true, Id: chatID})

	// 4. Keep the conversation
	if reply.Len() > 0 {
		chatLog.Messages = append(chatLog.Messages, entity.ChatMessage{
			Role:    constant.ChatMessageRoleAssistant,
			Content: reply.String(),
		})
	}
	s.persist(ctx, chatID, chatLog)

	if streamErr != nil {
		return chatID, fmt.Errorf("assistant: %w", streamErr)
	}
	return chatID, finalErr
}

// openChat loads the conversation id names, creating it when id is nil or
// unknown.
func (s *chatService) openChat(ctx context.Context, id *uuid.UUID) (uuid.UUID, entity.ChatLog, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if id != nil && *id != uuid.Nil {
		chat, err := uow.ContentRepository().FindOne(ctx,
			specification.ByID{ID: *id},
			specification.ByContentType{ContentType: entity.ContentTypeChat},
		)
		if err != nil {
			return uuid.Nil, entity.ChatLog{}, err
		}
		if chat != nil {
			chatLog, err := s.mapper.ChatLog(chat)
			if err != nil {
				s.logger.Warn("ChatService", "Unreadable chat log, starting over", map[string]interface{}{"chat_id": chat.Id.String(), "error": err.Error()})
			}
			return chat.Id, chatLog, nil
		}
	}

	metadata, err := s.mapper.ChatMetadata(entity.ChatLog{})
	if err != nil {
		return uuid.Nil, entity.ChatLog{}, err
	}
	chat := &entity.Content{
		Id:          mapper.NewID(id),
		Title:       constant.NewChatTitle,
		ContentType: entity.ContentTypeChat,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
	if err := uow.ContentRepository().Create(ctx, chat); err != nil {
		return uuid.Nil, entity.ChatLog{}, err
	}
	s.cache.Invalidate()
	return chat.Id, entity.ChatLog{}, nil
}

// persist hands the conversation to the transcript consumer, storing it
// directly when the queue is not available.
func (s *chatService) persist(ctx context.Context, chatID uuid.UUID, chatLog entity.ChatLog) {
	payload, err := json.Marshal(dto.PersistTranscriptMessage{ChatId: chatID, Chat: chatLog})
	if err == nil && s.publisherService != nil {
		if err = s.publisherService.Publish(ctx, payload); err == nil {
			return
		}
	}
	if err != nil {
		s.logger.Warn("ChatService", "Queueing transcript failed, saving inline", map[string]interface{}{"chat_id": chatID.String(), "error": err.Error()})
	}
	if err := saveTranscript(ctx, s.uowFactory, s.mapper, chatID, chatLog); err != nil {
		s.logger.Error("ChatService", "Failed to save transcript", map[string]interface{}{"chat_id": chatID.String(), "error": err.Error()})
		return
	}
	s.cache.Invalidate()
}

// explainMessage asks for a plain explanation of a highlighted passage in
// the context of its document.
func explainMessage(doc dto.DocContext, text string) string {
	names := make([]string, len(doc.Authors))
	for i, a := range doc.Authors {
		names[i] = strings.TrimSpace(a.FirstName + " " + a.LastName)
	}
	authors := strings.Join(names, ",")
	if doc.Summary != "" {
		return fmt.Sprintf(constant.ExplainWithSummaryPrompt, text, doc.Title, authors, doc.Summary)
	}
	return fmt.Sprintf(constant.ExplainPrompt, text, doc.Title, authors)
}

// saveTranscript replaces the stored conversation of a chat row. A missing
// row is not an error.
func saveTranscript(ctx context.Context, uowFactory unitofwork.RepositoryFactory, m *mapper.ContentMapper, chatID uuid.UUID, chatLog entity.ChatLog) error {
	uow := uowFactory.NewUnitOfWork(ctx)
	chat, err := uow.ContentRepository().FindOne(ctx, specification.ByID{ID: chatID})
	if err != nil {
		return err
	}
	if chat == nil {
		return nil
	}
	metadata, err := m.ChatMetadata(chatLog)
	if err != nil {
		return err
	}
	chat.Metadata = metadata
	return uow.ContentRepository().Update(ctx, chat)
}
