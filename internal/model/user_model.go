package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string         `gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string         `gorm:"type:varchar(255);not null"`
	IsActive     bool           `gorm:"default:true"`
	AuthorId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Author       Author         `gorm:"foreignKey:AuthorId"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
