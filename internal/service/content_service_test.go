package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/repository/memory"
	"locus/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloDelta = `{"ops":[{"insert":"Hello\n"}]}`

func newContentService(t *testing.T, dir string) (IContentService, *memStore, *recordingBus) {
	t.Helper()
	db := newMemStore()
	bus := &recordingBus{}
	svc := NewContentService(db, memory.NewCatalogCache(time.Minute), bus, metrics.New(), logger.NewNop(), dir)
	return svc, db, bus
}

func TestHTMLFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "My Notes", want: "My_Notes.html"},
		{title: "a/b c", want: "a_b_c.html"},
		{title: "  ", want: "untitled.html"},
		{title: "..", want: "untitled.html"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLFilename(tt.title))
		})
	}
}

func TestContentService_SaveQuill(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a note with its authors and HTML copy", func(t *testing.T) {
		dir := t.TempDir()
		svc, db, bus := newContentService(t, dir)

		res, err := svc.SaveQuill(ctx, &dto.SaveQuillRequest{
			Title: "Reading notes",
			Delta: helloDelta,
			Authors: []dto.AuthorRequest{
				{FirstName: "Ada", LastName: "Lovelace"},
				{FirstName: " ", LastName: ""},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Saved", res.Message)
		assert.Empty(t, res.Error)
		require.Len(t, res.SavedContent, 1)
		assert.Equal(t, res.Id, res.SavedContent[0].ID)

		stored := db.get(res.Id)
		require.NotNil(t, stored)
		assert.Equal(t, entity.ContentTypeNote, stored.ContentType)
		assert.Equal(t, "Reading_notes.html", stored.Filename)
		require.Len(t, stored.Authors, 1)
		assert.Equal(t, "Lovelace", stored.Authors[0].LastName)

		html, err := os.ReadFile(filepath.Join(dir, "Reading_notes.html"))
		require.NoError(t, err)
		assert.Contains(t, string(html), "Hello")

		assert.Equal(t, []string{events.ContentSaved}, bus.types())
	})

	t.Run("updates by id and reuses authors", func(t *testing.T) {
		svc, db, _ := newContentService(t, "")
		first, err := svc.SaveQuill(ctx, &dto.SaveQuillRequest{
			Title:   "Draft",
			Type:    entity.ContentTypeSummary,
			Delta:   helloDelta,
			Authors: []dto.AuthorRequest{{FirstName: "Ada", LastName: "Lovelace"}},
		})
		require.NoError(t, err)

		id := first.Id
		second, err := svc.SaveQuill(ctx, &dto.SaveQuillRequest{
			Id:      &id,
			Title:   "Final",
			Type:    entity.ContentTypeSummary,
			Delta:   helloDelta,
			Authors: []dto.AuthorRequest{{FirstName: "Ada", LastName: "Lovelace"}},
		})
		require.NoError(t, err)
		assert.Equal(t, id, second.Id)
		require.Len(t, second.SavedContent, 1)
		assert.Equal(t, "Final", second.SavedContent[0].Title)
		assert.Len(t, db.authors, 1)
		assert.Empty(t, db.get(id).Filename)
	})

	t.Run("unknown id is kept", func(t *testing.T) {
		svc, _, _ := newContentService(t, "")
		id := uuid.New()
		res, err := svc.SaveQuill(ctx, &dto.SaveQuillRequest{Id: &id, Title: "New", Delta: helloDelta})
		require.NoError(t, err)
		assert.Equal(t, id, res.Id)
	})

	t.Run("rejections", func(t *testing.T) {
		svc, db, bus := newContentService(t, "")
		entry := db.put(entity.Content{Title: "Paper", ContentType: entity.ContentTypeZoteroEntry})

		tests := []struct {
			name string
			req  dto.SaveQuillRequest
			want string
		}{
			{name: "chat", req: dto.SaveQuillRequest{Title: "c", Type: entity.ContentTypeChat, Delta: helloDelta}, want: "chat transcripts are read-only"},
			{name: "bad delta", req: dto.SaveQuillRequest{Title: "d", Delta: "{"}, want: "invalid delta"},
			{name: "over an entry", req: dto.SaveQuillRequest{Id: &entry.Id, Title: "e", Delta: helloDelta}, want: "cannot save over a zotero_entry"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res, err := svc.SaveQuill(ctx, &tt.req)
				require.NoError(t, err)
				assert.Contains(t, res.Error, tt.want)
				assert.Len(t, res.SavedContent, 1)
			})
		}
		assert.Empty(t, bus.types())
		assert.Equal(t, "Paper", db.get(entry.Id).Title)
	})
}

func TestContentService_ListAndShow(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newContentService(t, "")
	older := db.put(entity.Content{Title: "older", ContentType: entity.ContentTypeNote, CreatedAt: time.Now().Add(-time.Hour)})
	db.put(entity.Content{Title: "newer", ContentType: entity.ContentTypeZoteroEntry})
	db.put(entity.Content{Title: "gone", ContentType: entity.ContentTypeNote, IsDeleted: true})

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "older", docs[0].Title)

	doc, err := svc.Show(ctx, older.Id)
	require.NoError(t, err)
	assert.Equal(t, "older", doc.Title)

	_, err = svc.Show(ctx, uuid.New())
	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
}
