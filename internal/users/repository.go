package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	var result []User
	if len(ids) == 0 {
		return result, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&result).Error
	return result, err
}
