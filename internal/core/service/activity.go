package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/pkg/metrics"
)

// activityRecorder appends audit entries after a successful mutation.
// A failed append never fails the mutation.
type activityRecorder struct {
	repo ports.ActivityRepository
	log  zerolog.Logger
	now  func() time.Time
}

func (r activityRecorder) record(ctx context.Context, actor domain.Actor, action domain.Action, entityType, entityID, summary string) {
	metrics.ContentMutationsTotal.WithLabelValues(entityType, string(action)).Inc()

	entry := &domain.ActivityEntry{
		ID:         uuid.NewString(),
		Timestamp:  r.now().UTC(),
		ActorID:    actor.UserID,
		ActorName:  actor.Username,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
	}
	if err := r.repo.AppendActivity(ctx, entry); err != nil {
		metrics.ActivityLogFailuresTotal.Inc()
		r.log.Warn().Err(err).
			Str("action", string(action)).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("failed to append activity entry")
	}
}

// paginate normalizes page and limit the way every admin listing does:
// page starts at 1, limit defaults to 20 and is capped at 100. page is capped
// so that the row offset cannot overflow.
func paginate(page, limit int) domain.Page {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt/limit - 1; page > maxPage {
		page = maxPage
	}
	return domain.Page{Page: page, Limit: limit}
}

func pageResult[T any](items []T, total int64, p domain.Page) *ports.PageResult[T] {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	if items == nil {
		items = []T{}
	}
	return &ports.PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages,
	}
}
