package mapper

import (
	"time"

	"locus/internal/entity"
	"locus/internal/model"
	"locus/pkg/store"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}

	var updatedAt *time.Time
	if !u.UpdatedAt.IsZero() {
		t := u.UpdatedAt
		updatedAt = &t
	}

	out := &entity.User{
		Id:           u.Id,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		AuthorId:     u.AuthorId,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    updatedAt,
	}
	if u.Author.Id == u.AuthorId {
		out.Author = &entity.Author{Id: u.Author.Id, FirstName: u.Author.FirstName, LastName: u.Author.LastName}
	}
	return out
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}

	var updatedAt time.Time
	if u.UpdatedAt != nil {
		updatedAt = *u.UpdatedAt
	}

	out := &model.User{
		Id:           u.Id,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		AuthorId:     u.AuthorId,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    updatedAt,
	}
	if u.Author != nil {
		out.Author = model.Author{Id: u.Author.Id, FirstName: u.Author.FirstName, LastName: u.Author.LastName}
	}
	return out
}

// ToStore converts the user into the record returned by login and
// register. The token is filled in by the caller.
func (m *UserMapper) ToStore(u *entity.User) store.User {
	out := store.User{
		ID:       u.Id,
		Username: u.Username,
		AuthorID: u.AuthorId,
	}
	if u.Author != nil {
		out.FirstName = u.Author.FirstName
		out.LastName = u.Author.LastName
	}
	return out
}
