package mapper

import (
	"encoding/json"
	"time"

	"locus/internal/entity"
	"locus/internal/model"
	"locus/pkg/delta"
	"locus/pkg/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ContentMapper struct{}

func NewContentMapper() *ContentMapper {
	return &ContentMapper{}
}

func (m *ContentMapper) ToEntity(c *model.Content) *entity.Content {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	e := &entity.Content{
		Id:          c.Id,
		Metadata:    json.RawMessage(c.Metadata),
		Title:       c.Title,
		ContentType: c.ContentType,
		Delta:       c.Delta,
		Summary:     c.Summary,
		Tags:        c.Tags,
		DocId:       c.DocId,
		Authors:     m.AuthorsToEntities(c.Authors),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
		IsDeleted:   c.DeletedAt.Valid,
	}
	if c.ZoteroKey != nil {
		e.ZoteroKey = *c.ZoteroKey
	}
	if c.ZoteroVersion != nil {
		e.ZoteroVersion = *c.ZoteroVersion
	}
	if c.Filename != nil {
		e.Filename = *c.Filename
	}
	return e
}

func (m *ContentMapper) ToModel(c *entity.Content) *model.Content {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	out := &model.Content{
		Id:          c.Id,
		Metadata:    datatypes.JSON(c.Metadata),
		Title:       c.Title,
		ContentType: c.ContentType,
		Delta:       c.Delta,
		Summary:     c.Summary,
		Tags:        c.Tags,
		DocId:       c.DocId,
		Authors:     m.AuthorsToModels(c.Authors),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}
	if c.ZoteroKey != "" {
		key := c.ZoteroKey
		out.ZoteroKey = &key
		version := c.ZoteroVersion
		out.ZoteroVersion = &version
	}
	if c.Filename != "" {
		filename := c.Filename
		out.Filename = &filename
	}
	return out
}

func (m *ContentMapper) ToEntities(contents []*model.Content) []*entity.Content {
	entities := make([]*entity.Content, len(contents))
	for i, c := range contents {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ContentMapper) AuthorsToEntities(authors []model.Author) []entity.Author {
	if authors == nil {
		return nil
	}
	out := make([]entity.Author, len(authors))
	for i, a := range authors {
		out[i] = entity.Author{Id: a.Id, FirstName: a.FirstName, LastName: a.LastName}
	}
	return out
}

func (m *ContentMapper) AuthorsToModels(authors []entity.Author) []model.Author {
	if authors == nil {
		return nil
	}
	out := make([]model.Author, len(authors))
	for i, a := range authors {
		out[i] = model.Author{Id: a.Id, FirstName: a.FirstName, LastName: a.LastName}
	}
	return out
}

// ToDocument converts a row into the catalog record clients see. Chat rows
// get a delta rendered from their messages so they open like any other
// rich-text document.
func (m *ContentMapper) ToDocument(c *entity.Content) store.Document {
	doc := store.Document{
		ID:          c.Id,
		Title:       c.Title,
		ContentType: store.ContentType(c.ContentType),
		Authors:     m.ToStoreAuthors(c.Authors),
		Delta:       c.Delta,
		Filename:    c.Filename,
		ZoteroKey:   c.ZoteroKey,
		Summary:     c.Summary,
		Tags:        c.Tags,
		TimeCreated: c.CreatedAt,
	}

	switch c.ContentType {
	case entity.ContentTypeZoteroEntry, entity.ContentTypeZoteroAttachment:
		doc.Metadata = c.Metadata
	case entity.ContentTypeChat:
		// an unreadable log still opens, as an empty document
		log, _ := m.ChatLog(c)
		doc.Delta = transcriptDelta(log.Messages)
	}
	return doc
}

func (m *ContentMapper) ToDocuments(contents []*entity.Content) []store.Document {
	out := make([]store.Document, len(contents))
	for i, c := range contents {
		out[i] = m.ToDocument(c)
	}
	return out
}

func (m *ContentMapper) ToStoreAuthors(authors []entity.Author) []store.Author {
	out := make([]store.Author, len(authors))
	for i, a := range authors {
		out[i] = store.Author{ID: a.Id, FirstName: a.FirstName, LastName: a.LastName}
	}
	return out
}

func (m *ContentMapper) FromStoreAuthors(authors []store.Author) []entity.Author {
	out := make([]entity.Author, len(authors))
	for i, a := range authors {
		out[i] = entity.Author{Id: a.ID, FirstName: a.FirstName, LastName: a.LastName}
	}
	return out
}

func (m *ContentMapper) ToHighlight(c *entity.Content) store.Highlight {
	h := store.Highlight{
		ID:          c.Id,
		Title:       c.Title,
		Comment:     c.Summary,
		TimeCreated: c.CreatedAt,
	}
	if c.DocId != nil {
		h.DocID = *c.DocId
	}
	var meta entity.HighlightMetadata
	if len(c.Metadata) > 0 && json.Unmarshal(c.Metadata, &meta) == nil {
		h.Position = meta.Position
		h.Text = meta.Text
	}
	return h
}

func (m *ContentMapper) ToHighlights(contents []*entity.Content) []store.Highlight {
	out := make([]store.Highlight, len(contents))
	for i, c := range contents {
		out[i] = m.ToHighlight(c)
	}
	return out
}

// ChatLog decodes the conversation stored on a chat row. A row without
// metadata is an empty conversation.
func (m *ContentMapper) ChatLog(c *entity.Content) (entity.ChatLog, error) {
	var meta entity.ChatMetadata
	if len(c.Metadata) == 0 {
		return meta.Chat, nil
	}
	if err := json.Unmarshal(c.Metadata, &meta); err != nil {
		return entity.ChatLog{}, err
	}
	return meta.Chat, nil
}

func (m *ContentMapper) ChatMetadata(log entity.ChatLog) (json.RawMessage, error) {
	if log.Messages == nil {
		log.Messages = []entity.ChatMessage{}
	}
	if log.Highlights == nil {
		log.Highlights = []entity.ChatHighlight{}
	}
	return json.Marshal(entity.ChatMetadata{Chat: log})
}

func (m *ContentMapper) ToTranscript(c *entity.Content) store.Transcript {
	t := store.Transcript{ID: c.Id, Title: c.Title, Messages: []store.Message{}}
	log, err := m.ChatLog(c)
	if err != nil {
		return t
	}
	for _, msg := range log.Messages {
		t.Messages = append(t.Messages, store.Message{Role: msg.Role, Name: msg.Name, Content: msg.Content})
	}
	return t
}

func (m *ContentMapper) ToTranscripts(contents []*entity.Content) []store.Transcript {
	out := make([]store.Transcript, len(contents))
	for i, c := range contents {
		out[i] = m.ToTranscript(c)
	}
	return out
}

func transcriptDelta(messages []entity.ChatMessage) string {
	var d delta.Delta
	for _, msg := range messages {
		name := msg.Name
		if name == "" {
			name = msg.Role
		}
		d.Ops = append(d.Ops,
			delta.TextOp(name+": ", map[string]any{"bold": true}),
			delta.TextOp(msg.Content+"\n", nil),
		)
	}
	if len(d.Ops) == 0 {
		d = delta.FromText("")
	}
	out, err := d.Encode()
	if err != nil {
		return ""
	}
	return out
}

// NewID returns id when set, or a fresh one.
func NewID(id *uuid.UUID) uuid.UUID {
	if id != nil && *id != uuid.Nil {
		return *id
	}
	return uuid.New()
}
