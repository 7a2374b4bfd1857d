package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
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
	"locus/pkg/delta"
	"locus/pkg/events"
	"locus/pkg/store"

	"github.com/google/uuid"
)

type IContentService interface {
	List(ctx context.Context) ([]store.Document, error)
	Show(ctx context.Context, id uuid.UUID) (*store.Document, error)
	SaveQuill(ctx context.Context, req *dto.SaveQuillRequest) (*dto.SaveQuillResponse, error)
}

type contentService struct {
	uowFactory     unitofwork.RepositoryFactory
	cache          *memory.CatalogCache
	eventPublisher EventPublisher
	metrics        *metrics.Metrics
	logger         logger.ILogger
	mapper         *mapper.ContentMapper
	contentDir     string
}

func NewContentService(
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.CatalogCache,
	eventPublisher EventPublisher,
	m *metrics.Metrics,
	log logger.ILogger,
	contentDir string,
) IContentService {
	return &contentService{
		uowFactory:     uowFactory,
		cache:          cache,
		eventPublisher: eventPublisher,
		metrics:        m,
		logger:         log,
		mapper:         mapper.NewContentMapper(),
		contentDir:     contentDir,
	}
}

func (s *contentService) List(ctx context.Context) ([]store.Document, error) {
	if docs, ok := s.cache.Documents(); ok {
		recordCacheLookup(s.metrics, "documents", true)
		return docs, nil
	}
	recordCacheLookup(s.metrics, "documents", false)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	contents, err := uow.ContentRepository().FindAll(ctx,
		specification.WithAuthors{},
		specification.Oldest{},
	)
	if err != nil {
		return nil, err
	}

	docs := s.mapper.ToDocuments(contents)
	s.cache.SetDocuments(docs)
	return docs, nil
}

func (s *contentService) Show(ctx context.Context, id uuid.UUID) (*store.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	content, err := uow.ContentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.WithAuthors{},
	)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, serverutils.NotFound("Content not found")
	}
	doc := s.mapper.ToDocument(content)
	return &doc, nil
}

// SaveQuill upserts a rich-text document by id. Requests the catalog
// cannot accept come back with Error set rather than as an error.
func (s *contentService) SaveQuill(ctx context.Context, req *dto.SaveQuillRequest) (*dto.SaveQuillResponse, error) {
	contentType := req.Type
	if contentType == "" {
		contentType = entity.ContentTypeNote
	}

	if contentType == entity.ContentTypeChat {
		return s.rejected(ctx, uuid.Nil, "chat transcripts are read-only")
	}

	d, err := delta.Parse(req.Delta)
	if err != nil {
		return s.rejected(ctx, uuid.Nil, fmt.Sprintf("invalid delta: %v", err))
	}
	html := req.Content
	if html == "" {
		html = d.ToHTML()
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	// 1. Resolve authors by name
	authors := make([]entity.Author, 0, len(req.Authors))
	for _, a := range req.Authors {
		author := entity.Author{FirstName: strings.TrimSpace(a.FirstName), LastName: strings.TrimSpace(a.LastName)}
		if author.FirstName == "" && author.LastName == "" {
			continue
		}
		if err := uow.AuthorRepository().FindOrCreate(ctx, &author); err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}

	// 2. Load the existing row, if any
	var existing *entity.Content
	if req.Id != nil && *req.Id != uuid.Nil {
		existing, err = uow.ContentRepository().FindOne(ctx, specification.ByID{ID: *req.Id})
		if err != nil {
			return nil, err
		}
	}
	if existing != nil && !isNoteType(existing.ContentType) {
		return s.rejected(ctx, existing.Id, fmt.Sprintf("cannot save over a %s", existing.ContentType))
	}

	filename := s.writeHTML(req.Title, html)

	// 3. Upsert
	content := existing
	if content == nil {
		content = &entity.Content{
			Id:        mapper.NewID(req.Id),
			CreatedAt: time.Now(),
		}
	}
	content.Title = req.Title
	content.ContentType = contentType
	content.Delta = req.Delta
	content.Authors = authors
	if filename != "" {
		content.Filename = filename
	}

	if existing == nil {
		err = uow.ContentRepository().Create(ctx, content)
	} else {
		err = uow.ContentRepository().Update(ctx, content)
	}
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.cache.Invalidate()
	publishEvent(ctx, s.eventPublisher, s.logger, events.NewContentEvent(events.ContentSaved, content.Id, map[string]interface{}{
		"title":        content.Title,
		"content_type": content.ContentType,
	}))

	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SaveQuillResponse{
		Message:      "Saved",
		SavedContent: docs,
		Id:           content.Id,
	}, nil
}

func (s *contentService) rejected(ctx context.Context, id uuid.UUID, reason string) (*dto.SaveQuillResponse, error) {
	s.logger.Warn("ContentService", "Save rejected", map[string]interface{}{"id": id.String(), "reason": reason})
	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SaveQuillResponse{
		Message:      "Not saved",
		Error:        reason,
		SavedContent: docs,
		Id:           id,
	}, nil
}

// writeHTML stores the rendered document under the content directory and
// returns the file name, or "" when no directory is configured or the
// write failed.
func (s *contentService) writeHTML(title, html string) string {
	if s.contentDir == "" {
		return ""
	}
	filename := HTMLFilename(title)
	if err := os.WriteFile(filepath.Join(s.contentDir, filename), []byte(html), 0o644); err != nil {
		s.logger.Error("ContentService", "Failed to write HTML copy", map[string]interface{}{"file": filename, "error": err.Error()})
		return ""
	}
	return filename
}

func isNoteType(contentType string) bool {
	return contentType == entity.ContentTypeNote || contentType == entity.ContentTypeSummary
}

// HTMLFilename names the HTML copy of a document: its title with spaces
// and path separators replaced by underscores.
func HTMLFilename(title string) string {
	name := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(strings.TrimSpace(title))
	if name == "" || name == "." || name == ".." {
		name = "untitled"
	}
	return name + ".html"
}
