package contract

import (
	"context"

	"locus/internal/entity"
	"locus/internal/repository/specification"
)

type AuthorRepository interface {
	// FindOrCreate fills in the id of the author with the same name, creating
	// the row when there is none.
	FindOrCreate(ctx context.Context, author *entity.Author) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Author, error)
}
