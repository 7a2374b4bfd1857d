package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/entity"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/repository/memory"
	"locus/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlightService(t *testing.T) {
	ctx := context.Background()
	db := newMemStore()
	bus := &recordingBus{}
	cache := memory.NewCatalogCache(time.Minute)
	svc := NewHighlightService(db, cache, bus, nil, logger.NewNop())

	doc := db.put(entity.Content{Title: "Paper", ContentType: entity.ContentTypeZoteroEntry})

	// prime the cache so creation has to invalidate it
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	h, err := svc.Create(ctx, &dto.CreateHighlightRequest{
		Content: dto.HighlightContent{
			DocId:    doc.Id,
			Position: json.RawMessage(`{"page":3}`),
			Comment:  "key claim",
		},
		HighlightText: "the quoted text",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, h.ID)
	assert.Equal(t, doc.Id, h.DocID)
	assert.Equal(t, "Paper", h.Title)
	assert.Equal(t, "the quoted text", h.Text)
	assert.Equal(t, "key claim", h.Comment)
	assert.JSONEq(t, `{"page":3}`, string(h.Position))

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, h.ID, list[0].ID)

	assert.Equal(t, []string{events.HighlightCreated}, bus.types())
	assert.Equal(t, doc.Id, events.DocID(bus.events[0]))

	_, err = svc.Create(ctx, &dto.CreateHighlightRequest{
		Content:       dto.HighlightContent{DocId: uuid.New(), Position: json.RawMessage(`{}`)},
		HighlightText: "x",
	})
	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Document not found", appErr.Message)
}
