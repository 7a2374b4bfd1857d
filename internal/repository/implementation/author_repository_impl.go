package implementation

import (
	"context"

	"locus/internal/entity"
	"locus/internal/model"
	"locus/internal/repository/contract"
	"locus/internal/repository/specification"

	"gorm.io/gorm"
)

type AuthorRepositoryImpl struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) contract.AuthorRepository {
	return &AuthorRepositoryImpl{db: db}
}

func (r *AuthorRepositoryImpl) FindOrCreate(ctx context.Context, author *entity.Author) error {
	m := model.Author{FirstName: author.FirstName, LastName: author.LastName}
	err := r.db.WithContext(ctx).
		Where(model.Author{FirstName: author.FirstName, LastName: author.LastName}).
		FirstOrCreate(&m).Error
	if err != nil {
		return err
	}
	author.Id = m.Id
	return nil
}

func (r *AuthorRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Author, error) {
	var models []*model.Author
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Author, len(models))
	for i, m := range models {
		out[i] = &entity.Author{Id: m.Id, FirstName: m.FirstName, LastName: m.LastName}
	}
	return out, nil
}
