package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/core/schema"
)

type contentService struct {
	content   ports.ContentRepository
	contacts  ports.ContactRepository
	activity  ports.ActivityRepository
	recorder  activityRecorder
	validator *schema.Validator
	now       func() time.Time
	log       zerolog.Logger
}

// NewContentService returns the mutation gateway over store.
func NewContentService(store ports.Store, log zerolog.Logger) ports.ContentService {
	return newContentService(store, time.Now, log)
}

func newContentService(store ports.Store, now func() time.Time, log zerolog.Logger) *contentService {
	return &contentService{
		content:   store,
		contacts:  store,
		activity:  store,
		recorder:  activityRecorder{repo: store, log: log, now: now},
		validator: schema.NewValidator(),
		now:       now,
		log:       log,
	}
}

// authorize gates every admin operation. Reads need any verified actor;
// writes need an editing role.
func authorize(actor domain.Actor, write bool) error {
	if !actor.Authenticated() {
		return domain.ErrTokenInvalid
	}
	if write && !actor.CanEdit() {
		return domain.ErrForbidden
	}
	return nil
}

// storageErr passes domain outcomes through and hides everything else behind
// ErrInternal.
func (s *contentService) storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}
	s.log.Error().Err(err).Str("op", op).Msg("storage operation failed")
	return fmt.Errorf("%s: %w: %v", op, domain.ErrInternal, err)
}

func schemaFor(t domain.EntityType) (schema.Schema, error) {
	sch, ok := schema.For(t)
	if !ok {
		return schema.Schema{}, fmt.Errorf("entity %q: %w", t, domain.ErrNotFound)
	}
	return sch, nil
}

func (s *contentService) PublicList(ctx context.Context, t domain.EntityType) ([]*domain.Record, error) {
	if _, err := schemaFor(t); err != nil {
		return nil, err
	}
	records, err := s.content.List(ctx, t)
	if err != nil {
		return nil, s.storageErr("public list", err)
	}
	visible := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		if r.Visible {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

func (s *contentService) List(ctx context.Context, actor domain.Actor, t domain.EntityType) ([]*domain.Record, error) {
	if err := authorize(actor, false); err != nil {
		return nil, err
	}
	if _, err := schemaFor(t); err != nil {
		return nil, err
	}
	records, err := s.content.List(ctx, t)
	if err != nil {
		return nil, s.storageErr("list", err)
	}
	return records, nil
}

func (s *contentService) Get(ctx context.Context, actor domain.Actor, t domain.EntityType, id string) (*domain.Record, error) {
	if err := authorize(actor, false); err != nil {
		return nil, err
	}
	if _, err := schemaFor(t); err != nil {
		return nil, err
	}
	rec, err := s.content.Get(ctx, t, id)
	if err != nil {
		return nil, s.storageErr("get", err)
	}
	return rec, nil
}

func (s *contentService) Create(ctx context.Context, actor domain.Actor, t domain.EntityType, payload map[string]any) (*domain.Record, error) {
	if err := authorize(actor, true); err != nil {
		return nil, err
	}
	sch, err := schemaFor(t)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	fields, reserved := schema.Split(payload, verr)
	normalized, err := s.validator.Validate(sch, fields)
	mergeValidation(verr, err)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &domain.Record{
		ID:        uuid.NewString(),
		Type:      t,
		Visible:   true,
		Fields:    normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reserved.Visible != nil {
		rec.Visible = *reserved.Visible
	}

	created, err := s.content.Create(ctx, rec, reserved.Order)
	if err != nil {
		return nil, s.storageErr("create", err)
	}

	s.recorder.record(ctx, actor, domain.ActionCreate, string(t), created.ID,
		fmt.Sprintf("created %s %q", t, label(created)))
	return created, nil
}

func (s *contentService) Update(ctx context.Context, actor domain.Actor, t domain.EntityType, id string, patch map[string]any) (*domain.Record, error) {
	if err := authorize(actor, true); err != nil {
		return nil, err
	}
	sch, err := schemaFor(t)
	if err != nil {
		return nil, err
	}

	var changed []string
	updated, err := s.content.Update(ctx, t, id, func(rec *domain.Record) error {
		verr := &domain.ValidationError{}
		fields, reserved := schema.Split(patch, verr)
		if reserved.Order != nil && *reserved.Order != rec.Order {
			verr.Add(domain.FieldOrder, "cannot be changed here, use the reorder endpoint")
		}

		merged := maps.Clone(rec.Fields)
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range fields {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		normalized, err := s.validator.Validate(sch, merged)
		mergeValidation(verr, err)
		if err := verr.OrNil(); err != nil {
			return err
		}

		changed = slices.Sorted(maps.Keys(fields))
		if reserved.Visible != nil {
			if *reserved.Visible != rec.Visible {
				changed = append(changed, domain.FieldVisible)
			}
			rec.Visible = *reserved.Visible
		}
		rec.Fields = normalized
		rec.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.storageErr("update", err)
	}

	summary := fmt.Sprintf("updated %s %q", t, label(updated))
	if len(changed) > 0 {
		summary += " (" + strings.Join(changed, ", ") + ")"
	}
	s.recorder.record(ctx, actor, domain.ActionUpdate, string(t), updated.ID, summary)
	return updated, nil
}

func (s *contentService) Delete(ctx context.Context, actor domain.Actor, t domain.EntityType, id string) error {
	if err := authorize(actor, true); err != nil {
		return err
	}
	if _, err := schemaFor(t); err != nil {
		return err
	}

	current, err := s.content.Get(ctx, t, id)
	if err != nil {
		return s.storageErr("delete", err)
	}
	if err := s.content.Delete(ctx, t, id); err != nil {
		return s.storageErr("delete", err)
	}

	s.recorder.record(ctx, actor, domain.ActionDelete, string(t), id,
		fmt.Sprintf("deleted %s %q", t, label(current)))
	return nil
}

func (s *contentService) Reorder(ctx context.Context, actor domain.Actor, t domain.EntityType, ids []string) error {
	if err := authorize(actor, true); err != nil {
		return err
	}
	if _, err := schemaFor(t); err != nil {
		return err
	}
	if ids == nil {
		return domain.NewValidationError("ids", "is required")
	}

	if err := s.content.Reorder(ctx, t, ids); err != nil {
		return s.storageErr("reorder", err)
	}

	s.recorder.record(ctx, actor, domain.ActionReorder, string(t), "",
		fmt.Sprintf("reordered %d %s", len(ids), t))
	return nil
}

func (s *contentService) Compact(ctx context.Context, actor domain.Actor, t domain.EntityType) error {
	if err := authorize(actor, true); err != nil {
		return err
	}
	if _, err := schemaFor(t); err != nil {
		return err
	}

	if err := s.content.Compact(ctx, t); err != nil {
		return s.storageErr("compact", err)
	}

	s.recorder.record(ctx, actor, domain.ActionCompact, string(t), "",
		fmt.Sprintf("compacted %s ordering", t))
	return nil
}

func (s *contentService) ListSubmissions(ctx context.Context, actor domain.Actor, in ports.ListSubmissionsInput) (*ports.PageResult[*domain.ContactSubmission], error) {
	if err := authorize(actor, false); err != nil {
		return nil, err
	}
	status := domain.ContactStatus(in.Status)
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of: new read archived")
	}

	page := paginate(in.Page, in.Limit)
	items, total, err := s.contacts.ListSubmissions(ctx, ports.ContactFilter{Status: status, Page: page})
	if err != nil {
		return nil, s.storageErr("list submissions", err)
	}
	return pageResult(items, total, page), nil
}

func (s *contentService) GetSubmission(ctx context.Context, actor domain.Actor, id string) (*domain.ContactSubmission, error) {
	if err := authorize(actor, false); err != nil {
		return nil, err
	}
	sub, err := s.contacts.GetSubmission(ctx, id)
	if err != nil {
		return nil, s.storageErr("get submission", err)
	}
	return sub, nil
}

func (s *contentService) SetSubmissionStatus(ctx context.Context, actor domain.Actor, id string, status string) (*domain.ContactSubmission, error) {
	if err := authorize(actor, true); err != nil {
		return nil, err
	}
	next := domain.ContactStatus(status)
	if !next.Valid() {
		return nil, domain.NewValidationError("status", "must be one of: new read archived")
	}

	var prev domain.ContactStatus
	sub, err := s.contacts.UpdateSubmission(ctx, id, func(sub *domain.ContactSubmission) error {
		prev = sub.Status
		if sub.Status == next {
			return nil
		}
		if !sub.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, sub.Status, next)
		}
		sub.Status = next
		sub.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.storageErr("set submission status", err)
	}
	if prev == next {
		return sub, nil
	}

	s.recorder.record(ctx, actor, domain.ActionStatusChange, domain.TargetContact, id,
		fmt.Sprintf("marked message from %s as %s (was %s)", sub.Name, next, prev))
	return sub, nil
}

func (s *contentService) DeleteSubmission(ctx context.Context, actor domain.Actor, id string) error {
	if err := authorize(actor, true); err != nil {
		return err
	}
	sub, err := s.contacts.GetSubmission(ctx, id)
	if err != nil {
		return s.storageErr("delete submission", err)
	}
	if err := s.contacts.DeleteSubmission(ctx, id); err != nil {
		return s.storageErr("delete submission", err)
	}

	s.recorder.record(ctx, actor, domain.ActionDelete, domain.TargetContact, id,
		fmt.Sprintf("deleted message from %s", sub.Name))
	return nil
}

func (s *contentService) ListActivity(ctx context.Context, actor domain.Actor, page, limit int) (*ports.PageResult[*domain.ActivityEntry], error) {
	if err := authorize(actor, false); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	p := paginate(page, limit)
	items, total, err := s.activity.ListActivity(ctx, p)
	if err != nil {
		return nil, s.storageErr("list activity", err)
	}
	return pageResult(items, total, p), nil
}

func mergeValidation(dst *domain.ValidationError, err error) {
	if err == nil {
		return
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		dst.Errors = append(dst.Errors, ve.Errors...)
		return
	}
	dst.Add("payload", err.Error())
}

// labelFields are tried in order to name a record in the activity log.
var labelFields = []string{"title", "name", "author", "company", "institution", "primary_color"}

func label(r *domain.Record) string {
	for _, f := range labelFields {
		if v, ok := r.Fields[f].(string); ok && v != "" {
			return v
		}
	}
	return r.ID
}
