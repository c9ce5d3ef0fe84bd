package user

import (
	"context"
	"errors"

	"announcebot-api/internal/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines data access for registered users
type Repository interface {
	Get(ctx context.Context, chatID int64) (*User, error)
	// InsertIfAbsent atomically creates the row unless one exists for the
	// chat and reports whether it did.
	InsertIfAbsent(ctx context.Context, u *User) (bool, error)
	// Delete removes the row and reports whether one existed.
	Delete(ctx context.Context, chatID int64) (bool, error)
	ListAll(ctx context.Context) ([]User, error)
}

type gormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a gorm-backed user repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) Repository {
	return &gormRepository{db: db, logger: logger}
}

func (r *gormRepository) Get(ctx context.Context, chatID int64) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, common.WrapRepositoryError(err, "get user")
	}
	return &u, nil
}

func (r *gormRepository) InsertIfAbsent(ctx context.Context, u *User) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "chat_id"}}, DoNothing: true}).
		Create(u)
	if result.Error != nil {
		return false, common.WrapRepositoryError(result.Error, "insert user")
	}

	created := result.RowsAffected > 0
	r.logger.Debug("Insert-if-absent user",
		zap.Int64("chat_id", u.ChatID),
		zap.Bool("created", created))
	return created, nil
}

func (r *gormRepository) Delete(ctx context.Context, chatID int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&User{})
	if result.Error != nil {
		return false, common.WrapRepositoryError(result.Error, "delete user")
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) ListAll(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("registered_at ASC, chat_id ASC").Find(&users).Error; err != nil {
		return nil, common.WrapRepositoryError(err, "list users")
	}
	return users, nil
}
