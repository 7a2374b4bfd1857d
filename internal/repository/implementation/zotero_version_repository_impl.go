package implementation

import (
	"context"
	"errors"
	"time"

	"locus/internal/entity"
	"locus/internal/model"
	"locus/internal/repository/contract"

	"gorm.io/gorm"
)

type ZoteroVersionRepositoryImpl struct {
	db *gorm.DB
}

func NewZoteroVersionRepository(db *gorm.DB) contract.ZoteroVersionRepository {
	return &ZoteroVersionRepositoryImpl{db: db}
}

func (r *ZoteroVersionRepositoryImpl) Latest(ctx context.Context) (*entity.ZoteroVersion, error) {
	var m model.ZoteroVersion
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity.ZoteroVersion{Version: m.Version, Timestamp: m.Timestamp}, nil
}

func (r *ZoteroVersionRepositoryImpl) Store(ctx context.Context, version int) error {
	return r.db.WithContext(ctx).Create(&model.ZoteroVersion{Version: version, Timestamp: time.Now()}).Error
}
