// Package memory is an in-process storage backend. Every call holds one
// store-wide lock, so multi-record operations are trivially atomic.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// Store implements ports.Store.
type Store struct {
	mu          sync.RWMutex
	content     map[domain.EntityType]map[string]*domain.Record
	submissions map[string]*domain.ContactSubmission
	activity    []*domain.ActivityEntry
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		content:     make(map[domain.EntityType]map[string]*domain.Record),
		submissions: make(map[string]*domain.ContactSubmission),
	}
}

// Ping satisfies the readiness check.
func (s *Store) Ping(context.Context) error { return nil }

// ── Content ──────────────────────────────────────────────────────────────────

func (s *Store) collection(t domain.EntityType) map[string]*domain.Record {
	c, ok := s.content[t]
	if !ok {
		c = make(map[string]*domain.Record)
		s.content[t] = c
	}
	return c
}

// sorted returns the records of t by order, then creation time, then id.
func (s *Store) sorted(t domain.EntityType) []*domain.Record {
	out := make([]*domain.Record, 0, len(s.content[t]))
	for _, r := range s.content[t] {
		out = append(out, r)
	}
	domain.SortByOrder(out)
	return out
}

func (s *Store) List(_ context.Context, t domain.EntityType) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.sorted(t)
	for i, r := range records {
		records[i] = r.Clone()
	}
	return records, nil
}

func (s *Store) Get(_ context.Context, t domain.EntityType, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.content[t][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) Create(_ context.Context, rec *domain.Record, order *int) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(rec.Type)
	if _, exists := c[rec.ID]; exists {
		return nil, fmt.Errorf("%s %s already exists: %w", rec.Type, rec.ID, domain.ErrConflict)
	}

	stored := rec.Clone()
	if order != nil {
		for _, r := range c {
			if r.Order == *order {
				return nil, fmt.Errorf("order %d of %s is taken: %w", *order, rec.Type, domain.ErrConflict)
			}
		}
		stored.Order = *order
	} else {
		stored.Order = 0
		for _, r := range c {
			if r.Order >= stored.Order {
				stored.Order = r.Order + 1
			}
		}
	}

	c[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *Store) Update(_ context.Context, t domain.EntityType, id string, mutate func(*domain.Record) error) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.content[t][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	draft := existing.Clone()
	if err := mutate(draft); err != nil {
		return nil, err
	}
	next := existing.Clone()
	next.Fields = draft.Fields
	next.Visible = draft.Visible
	next.UpdatedAt = draft.UpdatedAt
	s.content[t][id] = next
	return next.Clone(), nil
}

func (s *Store) Delete(_ context.Context, t domain.EntityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.content[t][id]; !ok {
		return fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	delete(s.content[t], id)
	return nil
}

func (s *Store) Reorder(_ context.Context, t domain.EntityType, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.content[t]
	current := make([]string, 0, len(c))
	for id := range c {
		current = append(current, id)
	}
	if err := domain.CheckReorder(t, ids, current); err != nil {
		return err
	}
	for i, id := range ids {
		c[id].Order = i
	}
	return nil
}

func (s *Store) Compact(_ context.Context, t domain.EntityType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.sorted(t) {
		r.Order = i
	}
	return nil
}

// ── Contact submissions ──────────────────────────────────────────────────────

func cloneSubmission(sub *domain.ContactSubmission) *domain.ContactSubmission {
	c := *sub
	return &c
}

func (s *Store) CreateSubmission(_ context.Context, sub *domain.ContactSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[sub.ID]; exists {
		return fmt.Errorf("submission %s already exists: %w", sub.ID, domain.ErrConflict)
	}
	s.submissions[sub.ID] = cloneSubmission(sub)
	return nil
}

func (s *Store) GetSubmission(_ context.Context, id string) (*domain.ContactSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	return cloneSubmission(sub), nil
}

func (s *Store) ListSubmissions(_ context.Context, f ports.ContactFilter) ([]*domain.ContactSubmission, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.ContactSubmission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if f.Status == "" || sub.Status == f.Status {
			matched = append(matched, sub)
		}
	}
	slices.SortFunc(matched, func(a, b *domain.ContactSubmission) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(b.ID, a.ID))
	})

	page := window(matched, f.Page)
	out := make([]*domain.ContactSubmission, len(page))
	for i, sub := range page {
		out[i] = cloneSubmission(sub)
	}
	return out, int64(len(matched)), nil
}

func (s *Store) UpdateSubmission(_ context.Context, id string, mutate func(*domain.ContactSubmission) error) (*domain.ContactSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	draft := cloneSubmission(sub)
	if err := mutate(draft); err != nil {
		return nil, err
	}
	sub.Status = draft.Status
	sub.UpdatedAt = draft.UpdatedAt
	return cloneSubmission(sub), nil
}

func (s *Store) DeleteSubmission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[id]; !ok {
		return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	delete(s.submissions, id)
	return nil
}

// ── Activity log ─────────────────────────────────────────────────────────────

func (s *Store) AppendActivity(_ context.Context, e *domain.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *e
	s.activity = append(s.activity, &c)
	return nil
}

func (s *Store) ListActivity(_ context.Context, p domain.Page) ([]*domain.ActivityEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	newest := slices.Clone(s.activity)
	slices.Reverse(newest)
	slices.SortStableFunc(newest, func(a, b *domain.ActivityEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	page := window(newest, p)
	out := make([]*domain.ActivityEntry, len(page))
	for i, e := range page {
		c := *e
		out[i] = &c
	}
	return out, int64(len(newest)), nil
}

func window[T any](items []T, p domain.Page) []T {
	off := p.Offset()
	if off < 0 || off >= len(items) {
		return nil
	}
	end := len(items)
	if p.Limit > 0 && p.Limit < end-off {
		end = off + p.Limit
	}
	return items[off:end]
}
