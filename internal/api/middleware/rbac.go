package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// RBAC enforces role-based access control on top of Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFrom(c)
			if !actor.Authenticated() {
				return fmt.Errorf("rbac: %w", domain.ErrTokenInvalid)
			}
			if _, ok := allowed[actor.Role]; !ok {
				return fmt.Errorf("role %q: %w", actor.Role, domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
