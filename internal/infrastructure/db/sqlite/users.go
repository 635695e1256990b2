package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// UserRepository implements ports.AuthRepository on the users table.
type UserRepository struct {
	db *gorm.DB
}

var _ ports.AuthRepository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) find(ctx context.Context, column, value string) (*domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", column, err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, "username", username)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(ctx, "id", id)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := UserModel{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&UserModel{}).Where("username = ? OR id = ?", m.Username, m.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrUserExists
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	var out *domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m UserModel
		err := tx.Where("id = ?", user.ID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		var clash int64
		if err := tx.Model(&UserModel{}).Where("username = ? AND id <> ?", user.Username, user.ID).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return domain.ErrUserExists
		}

		m.Username = user.Username
		m.PasswordHash = user.PasswordHash
		m.Role = user.Role
		m.UpdatedAt = user.UpdatedAt
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		out = m.toDomain()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}
