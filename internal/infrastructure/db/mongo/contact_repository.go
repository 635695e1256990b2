package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

type submissionDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Subject   string    `bson:"subject,omitempty"`
	Company   string    `bson:"company,omitempty"`
	Message   string    `bson:"message"`
	Source    string    `bson:"source,omitempty"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d submissionDoc) toDomain() *domain.ContactSubmission {
	return &domain.ContactSubmission{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Subject:   d.Subject,
		Company:   d.Company,
		Message:   d.Message,
		Source:    d.Source,
		Status:    domain.ContactStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateSubmission(ctx context.Context, sub *domain.ContactSubmission) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := submissionDoc{
		ID:        sub.ID,
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Company:   sub.Company,
		Message:   sub.Message,
		Source:    sub.Source,
		Status:    string(sub.Status),
		CreatedAt: sub.CreatedAt.UTC(),
		UpdatedAt: sub.UpdatedAt.UTC(),
	}
	if _, err := s.contacts.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("submission %s already exists: %w", sub.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.ContactSubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d submissionDoc
	err := s.contacts.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return d.toDomain(), nil
}

func (s *Store) ListSubmissions(ctx context.Context, f ports.ContactFilter) ([]*domain.ContactSubmission, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	total, err := s.contacts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Page.Offset()))
	if f.Page.Limit > 0 {
		opts.SetLimit(int64(f.Page.Limit))
	}
	cur, err := s.contacts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	var docs []submissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list submissions: decode: %w", err)
	}

	out := make([]*domain.ContactSubmission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (s *Store) UpdateSubmission(ctx context.Context, id string, mutate func(*domain.ContactSubmission) error) (*domain.ContactSubmission, error) {
	var out *domain.ContactSubmission
	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		var d submissionDoc
		err := s.contacts.FindOne(sc, bson.M{"_id": id}).Decode(&d)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		draft := d.toDomain()
		if err := mutate(draft); err != nil {
			return err
		}
		d.Status = string(draft.Status)
		d.UpdatedAt = draft.UpdatedAt.UTC()
		if _, err := s.contacts.UpdateOne(sc,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": d.Status, "updated_at": d.UpdatedAt}},
		); err != nil {
			return err
		}
		out = d.toDomain()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update submission %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.contacts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
