package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

type activityDoc struct {
	ID         string    `bson:"_id"`
	Timestamp  time.Time `bson:"timestamp"`
	ActorID    string    `bson:"actor_id"`
	ActorName  string    `bson:"actor_name,omitempty"`
	Action     string    `bson:"action"`
	EntityType string    `bson:"entity_type"`
	EntityID   string    `bson:"entity_id,omitempty"`
	Summary    string    `bson:"summary"`
}

// AppendActivity inserts one entry into the activity_log collection.
func (s *Store) AppendActivity(ctx context.Context, e *domain.ActivityEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := activityDoc{
		ID:         e.ID,
		Timestamp:  e.Timestamp.UTC(),
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		Action:     string(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Summary:    e.Summary,
	}
	if _, err := s.activity.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, p domain.Page) ([]*domain.ActivityEntry, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := s.activity.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(p.Offset()))
	if p.Limit > 0 {
		opts.SetLimit(int64(p.Limit))
	}
	cur, err := s.activity.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	var docs []activityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list activity: decode: %w", err)
	}

	out := make([]*domain.ActivityEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.ActivityEntry{
			ID:         d.ID,
			Timestamp:  d.Timestamp.UTC(),
			ActorID:    d.ActorID,
			ActorName:  d.ActorName,
			Action:     domain.Action(d.Action),
			EntityType: d.EntityType,
			EntityID:   d.EntityID,
			Summary:    d.Summary,
		})
	}
	return out, total, nil
}
