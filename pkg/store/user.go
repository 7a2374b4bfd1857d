package store

import "github.com/google/uuid"

// User is the authenticated account as returned by login/register.
type User struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	Username  string    `json:"username" validate:"required"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AuthorID  uuid.UUID `json:"author_id"`
	Token     string    `json:"token,omitempty"`
}

// Author returns the author record the user signs documents with.
func (u User) Author() Author {
	return Author{ID: u.AuthorID, FirstName: u.FirstName, LastName: u.LastName}
}
