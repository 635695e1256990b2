package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/api/handler"
	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Lists every failed field for validation errors.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, any) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, handler.ValidationErrorBody{Error: "validation failed", Fields: ve.Errors}
	}

	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		c.Response().Header().Set("Retry-After", retryAfterSeconds(rl.RetryAfter))
		return http.StatusTooManyRequests, handler.ErrorBody{Error: "too many requests"}
	}

	// Query parameter bind failures.
	var be *echo.BindingError
	if errors.As(err, &be) {
		return http.StatusBadRequest, handler.ValidationErrorBody{
			Error:  "validation failed",
			Fields: []domain.FieldError{{Field: be.Field, Message: "has an invalid value"}},
		}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, handler.ErrorBody{Error: fmt.Sprintf("%v", he.Message)}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, handler.ErrorBody{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, handler.ErrorBody{Error: "token expired"}
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, handler.ErrorBody{Error: "invalid or missing token"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, handler.ErrorBody{Error: "access forbidden"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, handler.ErrorBody{Error: "user not found"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, handler.ErrorBody{Error: "not found"}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, handler.ErrorBody{Error: "user already exists"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, handler.ErrorBody{Error: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, handler.ErrorBody{Error: err.Error()}
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, handler.ErrorBody{Error: "too many requests"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.ErrorBody{Error: "internal server error"}
}

// retryAfterSeconds renders d as whole seconds, rounded up, at least 1.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
