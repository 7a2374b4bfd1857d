package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/repository/memory"
	"locus/internal/repository/specification"
	"locus/internal/repository/unitofwork"
	"locus/pkg/events"
	"locus/pkg/zotero"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const pdfContentType = "application/pdf"

// ZoteroAPI is the part of the Zotero web API the sync uses.
type ZoteroAPI interface {
	CollectionKey(ctx context.Context, name string) (string, error)
	CollectionItems(ctx context.Context, collectionKey string, since int) ([]zotero.Item, int, error)
	Deleted(ctx context.Context, since int) ([]string, error)
	Children(ctx context.Context, itemKey string) ([]zotero.Item, error)
	File(ctx context.Context, attachmentKey string, w io.Writer) error
}

type IZoteroService interface {
	Sync(ctx context.Context) (*dto.SyncResponse, error)
	Download(ctx context.Context, req *dto.DownloadRequest) (*dto.DownloadResponse, error)
	// AttachmentPath resolves a stored attachment name to a file path.
	AttachmentPath(filename string) (string, error)
}

type zoteroService struct {
	uowFactory     unitofwork.RepositoryFactory
	api            ZoteroAPI
	collection     string
	contentDir     string
	cache          *memory.CatalogCache
	eventPublisher EventPublisher
	metrics        *metrics.Metrics
	logger         logger.ILogger
}

func NewZoteroService(
	uowFactory unitofwork.RepositoryFactory,
	api ZoteroAPI,
	collection string,
	contentDir string,
	cache *memory.CatalogCache,
	eventPublisher EventPublisher,
	m *metrics.Metrics,
	log logger.ILogger,
) IZoteroService {
	return &zoteroService{
		uowFactory:     uowFactory,
		api:            api,
		collection:     collection,
		contentDir:     contentDir,
		cache:          cache,
		eventPublisher: eventPublisher,
		metrics:        m,
		logger:         log,
	}
}

// Sync brings the catalog up to date with the Zotero collection. The
// first sync imports every item; later ones apply the changes and
// deletions since the stored library version.
func (s *zoteroService) Sync(ctx context.Context) (res *dto.SyncResponse, err error) {
	if s.api == nil {
		return nil, serverutils.NewAppError(fiber.StatusServiceUnavailable, "Zotero is not configured", ErrUnavailable)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	latest, err := uow.ZoteroVersionRepository().Latest(ctx)
	if err != nil {
		return nil, err
	}

	kind := "full"
	since := 0
	if latest != nil {
		kind = "incremental"
		since = latest.Version
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSync(kind, err)
		}
	}()

	// 1. Fetch
	collectionKey, err := s.api.CollectionKey(ctx, s.collection)
	if err != nil {
		return nil, s.remoteError(err)
	}

	var (
		items   []zotero.Item
		version int
		deleted []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, version, err = s.api.CollectionItems(gctx, collectionKey, since)
		return err
	})
	if latest != nil {
		g.Go(func() error {
			var err error
			deleted, err = s.api.Deleted(gctx, since)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.remoteError(err)
	}

	// 2. Apply
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	updated := 0
	for _, item := range items {
		if item.Data.ItemType == zotero.ItemTypeNote || item.Data.ItemType == zotero.ItemTypeAttachment {
			continue
		}
		if err := s.upsert(ctx, uow, item); err != nil {
			return nil, fmt.Errorf("apply zotero item %s: %w", item.Key, err)
		}
		updated++
	}

	removed, err := uow.ContentRepository().SoftDeleteByZoteroKeys(ctx, deleted)
	if err != nil {
		return nil, err
	}

	if version == 0 {
		version = since
	}
	if err := uow.ZoteroVersionRepository().Store(ctx, version); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ZoteroItemsTotal.WithLabelValues("upserted").Add(float64(updated))
		s.metrics.ZoteroItemsTotal.WithLabelValues("deleted").Add(float64(removed))
	}
	s.logger.Info("ZoteroService", "Sync finished", map[string]interface{}{
		"kind": kind, "version": version, "updated": updated, "deleted": removed,
	})

	if updated > 0 || removed > 0 {
		s.cache.Invalidate()
		publishEvent(ctx, s.eventPublisher, s.logger, events.NewContentEvent(events.ZoteroSynced, uuid.Nil, map[string]interface{}{
			"version": version,
		}))
	}

	return &dto.SyncResponse{Version: version, Updated: updated, Deleted: int(removed)}, nil
}

// upsert stores item under its Zotero key, reviving a row deleted by an
// earlier sync. The downloaded file of an existing row is kept.
func (s *zoteroService) upsert(ctx context.Context, uow unitofwork.UnitOfWork, item zotero.Item) error {
	content, err := itemToContent(item)
	if err != nil {
		return err
	}
	for i := range content.Authors {
		if err := uow.AuthorRepository().FindOrCreate(ctx, &content.Authors[i]); err != nil {
			return err
		}
	}

	repo := uow.ContentRepository()
	existing, err := repo.FindOne(ctx,
		specification.ByZoteroKey{Key: item.Key},
		specification.IncludeDeleted{},
	)
	if err != nil {
		return err
	}
	if existing == nil {
		content.Id = uuid.New()
		content.CreatedAt = time.Now()
		return repo.Create(ctx, content)
	}

	if existing.IsDeleted {
		if err := repo.Restore(ctx, existing.Id); err != nil {
			return err
		}
	}
	content.Id = existing.Id
	content.CreatedAt = existing.CreatedAt
	if content.Filename == "" {
		content.Filename = existing.Filename
	}
	return repo.Update(ctx, content)
}

// itemToContent converts a Zotero item into a catalog row.
func itemToContent(item zotero.Item) (*entity.Content, error) {
	metadata, err := item.Metadata()
	if err != nil {
		return nil, err
	}

	content := &entity.Content{
		ZoteroKey:     item.Key,
		ZoteroVersion: item.Version,
		Metadata:      metadata,
		Title:         item.Data.Title,
		Tags:          item.Data.TagList(),
		Authors:       []entity.Author{},
	}

	if item.Data.ItemType == zotero.ItemTypeAttachment {
		content.ContentType = entity.ContentTypeZoteroAttachment
		content.Summary = "attachment for " + item.Data.Title
		content.Filename = item.Data.Filename
		return content, nil
	}

	content.ContentType = entity.ContentTypeZoteroEntry
	content.Summary = item.Data.AbstractNote
	for _, c := range item.Data.Creators {
		first, last := c.Names()
		if first == "" && last == "" {
			continue
		}
		content.Authors = append(content.Authors, entity.Author{FirstName: first, LastName: last})
	}
	return content, nil
}

// Download fetches the first PDF attached to a Zotero entry into the
// content directory and records its name on the entry.
func (s *zoteroService) Download(ctx context.Context, req *dto.DownloadRequest) (*dto.DownloadResponse, error) {
	if req.ContentType != entity.ContentTypeZoteroEntry {
		return nil, serverutils.BadRequest("Not a zotero entry")
	}
	if s.api == nil || s.contentDir == "" {
		return nil, serverutils.NewAppError(fiber.StatusServiceUnavailable, "Attachment storage is not configured", ErrUnavailable)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	content, err := uow.ContentRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, serverutils.NotFound("Content not found")
	}
	key := req.ZoteroKey
	if key == "" {
		key = content.ZoteroKey
	}
	if key == "" {
		return nil, serverutils.BadRequest("Not a zotero entry")
	}

	// 1. Find the PDF
	children, err := s.api.Children(ctx, key)
	if err != nil {
		return nil, s.remoteError(err)
	}
	var attachment *zotero.Item
	for i := range children {
		if children[i].Data.ContentType == pdfContentType {
			attachment = &children[i]
			break
		}
	}
	if attachment == nil {
		return nil, serverutils.NotFound("No PDF attachment")
	}

	// 2. Store it
	filename := filepath.Base(attachment.Data.Filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		filename = attachment.Key + ".pdf"
	}
	if err := s.writeFile(ctx, attachment.Key, filename); err != nil {
		return nil, err
	}

	if err := uow.ContentRepository().UpdateFilename(ctx, content.Id, filename); err != nil {
		return nil, err
	}

	s.cache.Invalidate()
	publishEvent(ctx, s.eventPublisher, s.logger, events.NewContentEvent(events.AttachmentDownloaded, content.Id, map[string]interface{}{
		"filename": filename,
	}))
	return &dto.DownloadResponse{Filename: filename}, nil
}

// writeFile downloads into a temporary file first so a failed transfer
// never replaces a good copy.
func (s *zoteroService) writeFile(ctx context.Context, attachmentKey, filename string) error {
	tmp, err := os.CreateTemp(s.contentDir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.api.File(ctx, attachmentKey, tmp); err != nil {
		tmp.Close()
		return s.remoteError(err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.contentDir, filename))
}

func (s *zoteroService) AttachmentPath(filename string) (string, error) {
	if s.contentDir == "" {
		return "", serverutils.NotFound("Attachment not found")
	}
	clean := filepath.Base(filepath.Clean("/" + filename))
	if clean != filename || strings.HasPrefix(clean, ".") {
		return "", serverutils.BadRequest("Invalid filename")
	}
	path := filepath.Join(s.contentDir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", serverutils.NotFound("Attachment not found")
	}
	return path, nil
}

func (s *zoteroService) remoteError(err error) error {
	s.logger.Warn("ZoteroService", "Zotero request failed", map[string]interface{}{"error": err.Error()})
	if errors.Is(err, zotero.ErrCollectionNotFound) {
		return serverutils.NewAppError(fiber.StatusNotFound, "Zotero collection not found", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return serverutils.NewAppError(fiber.StatusBadGateway, "Zotero request failed", err)
}
