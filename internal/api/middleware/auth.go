package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// ActorKey is the echo.Context key holding the verified domain.Actor.
const ActorKey = "actor"

// Auth verifies the session token and injects the actor into context. The
// token is read from the Authorization header, falling back to cookieName.
func Auth(verifier ports.TokenVerifier, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := extractToken(c, cookieName)
			if err != nil {
				return err
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				return err
			}

			c.Set(ActorKey, domain.ActorFromClaims(claims))
			return next(c)
		}
	}
}

func extractToken(c echo.Context, cookieName string) (string, error) {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", fmt.Errorf("invalid authorization header: %w", domain.ErrTokenInvalid)
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if cookieName != "" {
		if ck, err := c.Cookie(cookieName); err == nil && ck.Value != "" {
			return ck.Value, nil
		}
	}

	return "", fmt.Errorf("missing session token: %w", domain.ErrTokenInvalid)
}

// ActorFrom returns the actor stored by Auth, or the zero Actor.
func ActorFrom(c echo.Context) domain.Actor {
	actor, _ := c.Get(ActorKey).(domain.Actor)
	return actor
}
