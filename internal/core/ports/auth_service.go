package ports

import (
	"context"
	"time"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// LoginResult is returned by a successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// ChangeCredentialsInput carries an admin's credential change request.
// Empty NewUsername or NewPassword leaves that value unchanged.
type ChangeCredentialsInput struct {
	CurrentPassword string
	NewUsername     string
	NewPassword     string
}

// TokenVerifier checks a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}

type AuthService interface {
	TokenVerifier
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
	ChangeCredentials(ctx context.Context, actor domain.Actor, in ChangeCredentialsInput) (*domain.User, error)
}
