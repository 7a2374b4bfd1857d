package service

import (
	"context"
	"encoding/json"
	"time"

	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/mapper"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/repository/memory"
	"locus/internal/repository/specification"
	"locus/internal/repository/unitofwork"
	"locus/pkg/events"
	"locus/pkg/store"

	"github.com/google/uuid"
)

type IHighlightService interface {
	List(ctx context.Context) ([]store.Highlight, error)
	Create(ctx context.Context, req *dto.CreateHighlightRequest) (*store.Highlight, error)
}

type highlightService struct {
	uowFactory     unitofwork.RepositoryFactory
	cache          *memory.CatalogCache
	eventPublisher EventPublisher
	metrics        *metrics.Metrics
	logger         logger.ILogger
	mapper         *mapper.ContentMapper
}

func NewHighlightService(
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.CatalogCache,
	eventPublisher EventPublisher,
	m *metrics.Metrics,
	log logger.ILogger,
) IHighlightService {
	return &highlightService{
		uowFactory:     uowFactory,
		cache:          cache,
		eventPublisher: eventPublisher,
		metrics:        m,
		logger:         log,
		mapper:         mapper.NewContentMapper(),
	}
}

func (s *highlightService) List(ctx context.Context) ([]store.Highlight, error) {
	if hs, ok := s.cache.Highlights(); ok {
		recordCacheLookup(s.metrics, "highlights", true)
		return hs, nil
	}
	recordCacheLookup(s.metrics, "highlights", false)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	contents, err := uow.ContentRepository().FindAll(ctx,
		specification.ByContentType{ContentType: entity.ContentTypeHighlight},
		specification.Oldest{},
	)
	if err != nil {
		return nil, err
	}

	hs := s.mapper.ToHighlights(contents)
	s.cache.SetHighlights(hs)
	return hs, nil
}

// Create stores a highlight of a catalog document and returns it with its
// new id.
func (s *highlightService) Create(ctx context.Context, req *dto.CreateHighlightRequest) (*store.Highlight, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.ContentRepository().FindOne(ctx, specification.ByID{ID: req.Content.DocId})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, serverutils.NotFound("Document not found")
	}

	metadata, err := json.Marshal(entity.HighlightMetadata{
		Position: req.Content.Position,
		Text:     req.HighlightText,
	})
	if err != nil {
		return nil, err
	}

	title := req.Content.Title
	if title == "" {
		title = doc.Title
	}
	docID := doc.Id
	highlight := &entity.Content{
		Id:          uuid.New(),
		Title:       title,
		ContentType: entity.ContentTypeHighlight,
		Summary:     req.Content.Comment,
		Metadata:    metadata,
		DocId:       &docID,
		CreatedAt:   time.Now(),
	}
	if err := uow.ContentRepository().Create(ctx, highlight); err != nil {
		return nil, err
	}

	s.cache.Invalidate()
	publishEvent(ctx, s.eventPublisher, s.logger, events.NewContentEvent(events.HighlightCreated, docID, map[string]interface{}{
		"highlight_id": highlight.Id.String(),
	}))

	out := s.mapper.ToHighlight(highlight)
	return &out, nil
}
