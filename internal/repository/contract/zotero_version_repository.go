package contract

import (
	"context"

	"locus/internal/entity"
)

type ZoteroVersionRepository interface {
	// Latest returns the most recent sync, or nil before the first one.
	Latest(ctx context.Context) (*entity.ZoteroVersion, error)
	Store(ctx context.Context, version int) error
}
