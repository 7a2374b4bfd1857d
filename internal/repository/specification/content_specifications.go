package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByContentType struct {
	ContentType string
}

func (s ByContentType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_type = ?", s.ContentType)
}

type ByContentTypes struct {
	ContentTypes []string
}

func (s ByContentTypes) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_type IN ?", s.ContentTypes)
}

type ExcludeContentTypes struct {
	ContentTypes []string
}

func (s ExcludeContentTypes) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_type NOT IN ?", s.ContentTypes)
}

type ByZoteroKey struct {
	Key string
}

func (s ByZoteroKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("zotero_key = ?", s.Key)
}

type ByZoteroKeys struct {
	Keys []string
}

func (s ByZoteroKeys) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("zotero_key IN ?", s.Keys)
}

// ByDocument selects rows attached to a document, such as its highlights.
type ByDocument struct {
	DocID uuid.UUID
}

func (s ByDocument) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("doc_id = ?", s.DocID)
}

type WithAuthors struct{}

func (s WithAuthors) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Authors")
}

type ByAuthorName struct {
	FirstName string
	LastName  string
}

func (s ByAuthorName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("first_name = ? AND last_name = ?", s.FirstName, s.LastName)
}
