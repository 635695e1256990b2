package ports

import (
	"context"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// PageResult is one page of a paginated listing.
type PageResult[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ListSubmissionsInput carries the admin inbox query.
type ListSubmissionsInput struct {
	Status string
	Page   int
	Limit  int
}

// ContentService is the mutation gateway: every admin read and write of
// content, submissions and the activity log passes through it.
type ContentService interface {
	PublicList(ctx context.Context, t domain.EntityType) ([]*domain.Record, error)

	List(ctx context.Context, actor domain.Actor, t domain.EntityType) ([]*domain.Record, error)
	Get(ctx context.Context, actor domain.Actor, t domain.EntityType, id string) (*domain.Record, error)
	Create(ctx context.Context, actor domain.Actor, t domain.EntityType, payload map[string]any) (*domain.Record, error)
	Update(ctx context.Context, actor domain.Actor, t domain.EntityType, id string, patch map[string]any) (*domain.Record, error)
	Delete(ctx context.Context, actor domain.Actor, t domain.EntityType, id string) error
	Reorder(ctx context.Context, actor domain.Actor, t domain.EntityType, ids []string) error
	Compact(ctx context.Context, actor domain.Actor, t domain.EntityType) error

	ListSubmissions(ctx context.Context, actor domain.Actor, in ListSubmissionsInput) (*PageResult[*domain.ContactSubmission], error)
	GetSubmission(ctx context.Context, actor domain.Actor, id string) (*domain.ContactSubmission, error)
	SetSubmissionStatus(ctx context.Context, actor domain.Actor, id string, status string) (*domain.ContactSubmission, error)
	DeleteSubmission(ctx context.Context, actor domain.Actor, id string) error

	ListActivity(ctx context.Context, actor domain.Actor, page, limit int) (*PageResult[*domain.ActivityEntry], error)
}
