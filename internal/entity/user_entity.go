package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Username     string
	PasswordHash string
	IsActive     bool
	AuthorId     uuid.UUID
	Author       *Author
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
