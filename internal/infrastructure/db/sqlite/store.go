// Package sqlite stores content, submissions, activity and users in a single
// SQLite file through GORM. Multi-record operations run in one transaction.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// Open opens (creating if needed) the database at path. SQLite allows one
// writer at a time, so the pool is limited to a single connection.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
	}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Store implements ports.Store.
type Store struct {
	db *gorm.DB
}

var _ ports.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ── Content ──────────────────────────────────────────────────────────────────

func (s *Store) List(ctx context.Context, t domain.EntityType) ([]*domain.Record, error) {
	rows := make([]RecordModel, 0)
	err := s.db.WithContext(ctx).
		Where("type = ?", string(t)).
		Order("position ASC, created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	out := make([]*domain.Record, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, t domain.EntityType, id string) (*domain.Record, error) {
	return getRecord(s.db.WithContext(ctx), t, id)
}

func getRecord(db *gorm.DB, t domain.EntityType, id string) (*domain.Record, error) {
	var m RecordModel
	err := db.Where("type = ? AND id = ?", string(t), id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	return m.toDomain(), nil
}

func (s *Store) Create(ctx context.Context, rec *domain.Record, order *int) (*domain.Record, error) {
	m := recordModel(rec)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order != nil {
			var taken int64
			if err := tx.Model(&RecordModel{}).
				Where("type = ? AND position = ?", m.Type, *order).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return fmt.Errorf("order %d of %s is taken: %w", *order, rec.Type, domain.ErrConflict)
			}
			m.Position = *order
		} else {
			var maxPos int
			if err := tx.Model(&RecordModel{}).
				Where("type = ?", m.Type).
				Select("COALESCE(MAX(position), -1)").
				Scan(&maxPos).Error; err != nil {
				return err
			}
			m.Position = maxPos + 1
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", rec.Type, err)
	}
	return m.toDomain(), nil
}

func (s *Store) Update(ctx context.Context, t domain.EntityType, id string, mutate func(*domain.Record) error) (*domain.Record, error) {
	var out *domain.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m RecordModel
		err := tx.Where("type = ? AND id = ?", string(t), id).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		draft := m.toDomain()
		if err := mutate(draft); err != nil {
			return err
		}
		m.Fields = draft.Fields
		m.Visible = draft.Visible
		m.UpdatedAt = draft.UpdatedAt
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		out = m.toDomain()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", t, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, t domain.EntityType, id string) error {
	res := s.db.WithContext(ctx).Where("type = ? AND id = ?", string(t), id).Delete(&RecordModel{})
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", t, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) Reorder(ctx context.Context, t domain.EntityType, ids []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []string
		if err := tx.Model(&RecordModel{}).Where("type = ?", string(t)).Pluck("id", &current).Error; err != nil {
			return err
		}
		if err := domain.CheckReorder(t, ids, current); err != nil {
			return err
		}
		for i, id := range ids {
			if err := tx.Model(&RecordModel{}).
				Where("type = ? AND id = ?", string(t), id).
				Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Compact(ctx context.Context, t domain.EntityType) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []RecordModel
		if err := tx.Select("id", "position").
			Where("type = ?", string(t)).
			Order("position ASC, created_at ASC, id ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		for i, m := range rows {
			if m.Position == i {
				continue
			}
			if err := tx.Model(&RecordModel{}).Where("id = ?", m.ID).Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ── Contact submissions ──────────────────────────────────────────────────────

func (s *Store) CreateSubmission(ctx context.Context, sub *domain.ContactSubmission) error {
	m := submissionModel(sub)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.ContactSubmission, error) {
	var m SubmissionModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return m.toDomain(), nil
}

func (s *Store) ListSubmissions(ctx context.Context, f ports.ContactFilter) ([]*domain.ContactSubmission, int64, error) {
	scope := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&SubmissionModel{})
		if f.Status != "" {
			q = q.Where("status = ?", string(f.Status))
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	rows := make([]SubmissionModel, 0)
	q := scope().Order("created_at DESC, id DESC").Offset(f.Page.Offset())
	if f.Page.Limit > 0 {
		q = q.Limit(f.Page.Limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]*domain.ContactSubmission, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, total, nil
}

func (s *Store) UpdateSubmission(ctx context.Context, id string, mutate func(*domain.ContactSubmission) error) (*domain.ContactSubmission, error) {
	var out *domain.ContactSubmission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m SubmissionModel
		err := tx.Where("id = ?", id).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		draft := m.toDomain()
		if err := mutate(draft); err != nil {
			return err
		}
		if err := tx.Model(&SubmissionModel{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": string(draft.Status), "updated_at": draft.UpdatedAt}).Error; err != nil {
			return err
		}
		m.Status = string(draft.Status)
		m.UpdatedAt = draft.UpdatedAt
		out = m.toDomain()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update submission %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&SubmissionModel{})
	if res.Error != nil {
		return fmt.Errorf("delete submission %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ── Activity log ─────────────────────────────────────────────────────────────

func (s *Store) AppendActivity(ctx context.Context, e *domain.ActivityEntry) error {
	m := ActivityModel{
		ID:         e.ID,
		Timestamp:  e.Timestamp,
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		Action:     string(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Summary:    e.Summary,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, p domain.Page) ([]*domain.ActivityEntry, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&ActivityModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	rows := make([]ActivityModel, 0)
	q := s.db.WithContext(ctx).Order("timestamp DESC, rowid DESC").Offset(p.Offset())
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}

	out := make([]*domain.ActivityEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, total, nil
}
