package unitofwork

import (
	"context"

	"locus/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	AuthorRepository() contract.AuthorRepository
	ContentRepository() contract.ContentRepository
	ZoteroVersionRepository() contract.ZoteroVersionRepository
}
