package ports

import (
	"context"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// AuthRepository defines the credential store.
type AuthRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update overwrites username, password hash and role of an existing user.
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}
