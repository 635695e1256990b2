package ports

import (
	"context"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// ContentRepository owns every ordered content collection.
//
// Implementations must apply each call atomically: a concurrent List observes
// either the state before or after a Reorder/Compact, never a mix.
type ContentRepository interface {
	// List returns all records of t ascending by order.
	List(ctx context.Context, t domain.EntityType) ([]*domain.Record, error)
	Get(ctx context.Context, t domain.EntityType, id string) (*domain.Record, error)
	// Create stores rec. When order is nil the record is appended at max+1;
	// otherwise the given order is used and ErrConflict returned if taken.
	Create(ctx context.Context, rec *domain.Record, order *int) (*domain.Record, error)
	// Update loads the record, applies mutate to a copy and stores the copy's
	// Fields, Visible and UpdatedAt, all under one lock or transaction. An
	// error from mutate aborts the update and is returned unchanged.
	Update(ctx context.Context, t domain.EntityType, id string, mutate func(*domain.Record) error) (*domain.Record, error)
	// Delete removes a record without renumbering the others.
	Delete(ctx context.Context, t domain.EntityType, id string) error
	// Reorder sets order = index for every id. ids must be exactly the current
	// id set of t, else ErrConflict and nothing changes.
	Reorder(ctx context.Context, t domain.EntityType, ids []string) error
	// Compact renumbers t to 0..n-1 keeping the relative order.
	Compact(ctx context.Context, t domain.EntityType) error
}

// ContactFilter narrows a submissions listing.
type ContactFilter struct {
	Status domain.ContactStatus // empty = any
	Page   domain.Page
}

// ContactRepository persists contact form submissions.
type ContactRepository interface {
	CreateSubmission(ctx context.Context, s *domain.ContactSubmission) error
	GetSubmission(ctx context.Context, id string) (*domain.ContactSubmission, error)
	// ListSubmissions returns a newest-first page and the total match count.
	ListSubmissions(ctx context.Context, f ContactFilter) ([]*domain.ContactSubmission, int64, error)
	// UpdateSubmission is the read-modify-write counterpart of Update for
	// submissions; only Status and UpdatedAt are stored.
	UpdateSubmission(ctx context.Context, id string, mutate func(*domain.ContactSubmission) error) (*domain.ContactSubmission, error)
	DeleteSubmission(ctx context.Context, id string) error
}

// ActivityRepository is the append-only audit trail.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, e *domain.ActivityEntry) error
	// ListActivity returns a newest-first page and the total entry count.
	ListActivity(ctx context.Context, p domain.Page) ([]*domain.ActivityEntry, int64, error)
}

// Store bundles the three repositories a storage backend provides.
type Store interface {
	ContentRepository
	ContactRepository
	ActivityRepository
}
