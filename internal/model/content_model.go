package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Content is one catalog row. Notes, summaries, chat transcripts, highlights
// and Zotero items share the table and are told apart by ContentType.
type Content struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ZoteroKey     *string        `gorm:"type:varchar(50);uniqueIndex"`
	ZoteroVersion *int
	Metadata      datatypes.JSON `gorm:"type:jsonb"`
	Title         string         `gorm:"type:varchar(255);not null"`
	ContentType   string         `gorm:"type:varchar(50);not null;index"`
	Delta         string         `gorm:"type:text"`
	Filename      *string        `gorm:"type:varchar(255)"`
	Summary       string         `gorm:"type:text"`
	Tags          string         `gorm:"type:text"`
	DocId         *uuid.UUID     `gorm:"type:uuid;index"`
	Authors       []Author       `gorm:"many2many:content_authors;"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Content) TableName() string {
	return "contents"
}

type Author struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName string    `gorm:"type:varchar(100);not null;index:idx_author_name"`
	LastName  string    `gorm:"type:varchar(100);not null;index:idx_author_name"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Author) TableName() string {
	return "authors"
}

// ZoteroVersion records the library version reached by each sync.
type ZoteroVersion struct {
	Id        uint      `gorm:"primaryKey;autoIncrement"`
	Version   int       `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index"`
}

func (ZoteroVersion) TableName() string {
	return "zotero_versions"
}
