package sqlite

import (
	"time"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

type RecordModel struct {
	ID        string         `gorm:"primaryKey"`
	Type      string         `gorm:"not null;index:idx_content_records_type_position"`
	Position  int            `gorm:"not null;index:idx_content_records_type_position"`
	Visible   bool           `gorm:"not null;default:true"`
	Fields    map[string]any `gorm:"serializer:json;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:false"`
}

func (RecordModel) TableName() string { return "content_records" }

func recordModel(r *domain.Record) RecordModel {
	return RecordModel{
		ID:        r.ID,
		Type:      string(r.Type),
		Position:  r.Order,
		Visible:   r.Visible,
		Fields:    r.Fields,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (m RecordModel) toDomain() *domain.Record {
	fields := m.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return &domain.Record{
		ID:        m.ID,
		Type:      domain.EntityType(m.Type),
		Order:     m.Position,
		Visible:   m.Visible,
		Fields:    domain.NormalizeFields(fields),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type SubmissionModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Subject   string
	Company   string
	Message   string `gorm:"not null"`
	Source    string
	Status    string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (SubmissionModel) TableName() string { return "contact_submissions" }

func submissionModel(s *domain.ContactSubmission) SubmissionModel {
	return SubmissionModel{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Subject:   s.Subject,
		Company:   s.Company,
		Message:   s.Message,
		Source:    s.Source,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m SubmissionModel) toDomain() *domain.ContactSubmission {
	return &domain.ContactSubmission{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Company:   m.Company,
		Message:   m.Message,
		Source:    m.Source,
		Status:    domain.ContactStatus(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type ActivityModel struct {
	ID         string    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"not null;index"`
	ActorID    string    `gorm:"not null"`
	ActorName  string
	Action     string `gorm:"not null"`
	EntityType string `gorm:"not null"`
	EntityID   string
	Summary    string
}

func (ActivityModel) TableName() string { return "activity_log" }

func (m ActivityModel) toDomain() *domain.ActivityEntry {
	return &domain.ActivityEntry{
		ID:         m.ID,
		Timestamp:  m.Timestamp.UTC(),
		ActorID:    m.ActorID,
		ActorName:  m.ActorName,
		Action:     domain.Action(m.Action),
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Summary:    m.Summary,
	}
}

type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (UserModel) TableName() string { return "users" }

func (m UserModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}
