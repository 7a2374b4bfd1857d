package scope

import "gorm.io/gorm"

// WithSoftDelete includes soft deleted rows.
func WithSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// OnlySoftDeleted selects rows that were soft deleted.
func OnlySoftDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("deleted_at IS NOT NULL")
}
