package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/api/middleware"
	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// ctxActor extracts the actor injected by the Auth middleware and fails fast
// before any service call when it is missing.
func ctxActor(c echo.Context) (domain.Actor, error) {
	actor := middleware.ActorFrom(c)
	if !actor.Authenticated() {
		return domain.Actor{}, fmt.Errorf("missing authentication claims: %w", domain.ErrTokenInvalid)
	}
	return actor, nil
}

// entityParam resolves the :entity path segment.
func entityParam(c echo.Context) (domain.EntityType, error) {
	raw := c.Param("entity")
	t, ok := domain.ParseEntityType(raw)
	if !ok {
		return "", fmt.Errorf("unknown entity %q: %w", raw, domain.ErrNotFound)
	}
	return t, nil
}

// bindRequest decodes the JSON body into req and runs struct validation.
func bindRequest(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// bindPayload decodes a free-form JSON object. Path parameters are never
// merged into it.
func bindPayload(c echo.Context) (map[string]any, error) {
	payload := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &payload); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return payload, nil
}
