package announcement

import (
	"context"

	"announcebot-api/internal/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository defines data access for announcements
type Repository interface {
	ListAll(ctx context.Context) ([]Announcement, error)
	Create(ctx context.Context, a *Announcement) error
	Delete(ctx context.Context, id common.ID) error
}

type gormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a gorm-backed announcement repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) Repository {
	return &gormRepository{db: db, logger: logger}
}

func (r *gormRepository) ListAll(ctx context.Context) ([]Announcement, error) {
	var items []Announcement
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, common.WrapRepositoryError(err, "list announcements")
	}
	return items, nil
}

func (r *gormRepository) Create(ctx context.Context, a *Announcement) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return common.WrapRepositoryError(err, "create announcement")
	}
	r.logger.Info("Announcement created", zap.String("announcement_id", a.ID.String()))
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id common.ID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Announcement{})
	if result.Error != nil {
		return common.WrapRepositoryError(result.Error, "delete announcement")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.logger.Info("Announcement deleted", zap.String("announcement_id", id.String()))
	return nil
}
