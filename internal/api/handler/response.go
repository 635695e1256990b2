package handler

import (
	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// ErrorBody is the canonical error envelope for all API errors.
type ErrorBody struct {
	Error string `json:"error"`
}

// ValidationErrorBody lists every failed field of a rejected payload.
type ValidationErrorBody struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields"`
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func toPageResponse[T any](p *ports.PageResult[T]) pageResponse[T] {
	return pageResponse[T]{
		Items:      p.Items,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}
