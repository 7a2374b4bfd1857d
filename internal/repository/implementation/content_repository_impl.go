package implementation

import (
	"context"
	"errors"

	"locus/internal/entity"
	"locus/internal/mapper"
	"locus/internal/model"
	"locus/internal/repository/contract"
	"locus/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContentMapper
}

func NewContentRepository(db *gorm.DB) contract.ContentRepository {
	return &ContentRepositoryImpl{
		db:     db,
		mapper: mapper.NewContentMapper(),
	}
}

func (r *ContentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Create inserts the row and links its authors, which must already exist.
func (r *ContentRepositoryImpl) Create(ctx context.Context, content *entity.Content) error {
	m := r.mapper.ToModel(content)
	db := r.db.WithContext(ctx)
	if err := db.Omit("Authors").Create(m).Error; err != nil {
		return err
	}
	if len(m.Authors) > 0 {
		if err := db.Model(m).Association("Authors").Replace(m.Authors); err != nil {
			return err
		}
	}
	*content = *r.mapper.ToEntity(m)
	return nil
}

// Update saves the row and replaces its author links.
func (r *ContentRepositoryImpl) Update(ctx context.Context, content *entity.Content) error {
	m := r.mapper.ToModel(content)
	db := r.db.WithContext(ctx)
	if err := db.Omit("Authors").Save(m).Error; err != nil {
		return err
	}
	if content.Authors != nil {
		if err := db.Model(m).Association("Authors").Replace(m.Authors); err != nil {
			return err
		}
	}
	*content = *r.mapper.ToEntity(m)
	return nil
}

func (r *ContentRepositoryImpl) UpdateFilename(ctx context.Context, id uuid.UUID, filename string) error {
	return r.db.WithContext(ctx).Model(&model.Content{}).Where("id = ?", id).Update("filename", filename).Error
}

func (r *ContentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Content{}, id).Error
}

// Restore undoes a soft delete.
func (r *ContentRepositoryImpl) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Model(&model.Content{}).Where("id = ?", id).Update("deleted_at", nil).Error
}

func (r *ContentRepositoryImpl) SoftDeleteByZoteroKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("zotero_key IN ?", keys).Delete(&model.Content{})
	return res.RowsAffected, res.Error
}

func (r *ContentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Content, error) {
	var m model.Content
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ContentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Content, error) {
	var models []*model.Content
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ContentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Content{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
