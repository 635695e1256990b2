package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

const (
	collectionContent    = "content_records"
	collectionLocks      = "content_locks"
	collectionContacts   = "contact_submissions"
	collectionActivity   = "activity_log"
	collectionAuthUsers  = "auth_users"
	indexCreationTimeout = 30 * time.Second
)

// Store implements ports.Store on three collections of one database.
type Store struct {
	client   *mongo.Client
	content  *mongo.Collection
	locks    *mongo.Collection
	contacts *mongo.Collection
	activity *mongo.Collection
}

var _ ports.Store = (*Store)(nil)

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:   client,
		content:  db.Collection(collectionContent),
		locks:    db.Collection(collectionLocks),
		contacts: db.Collection(collectionContacts),
		activity: db.Collection(collectionActivity),
	}
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return Pinger{Client: s.client}.Ping(ctx)
}

// EnsureIndexes creates the indexes every listing relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexCreationTimeout)
	defer cancel()

	plan := map[*mongo.Collection][]mongo.IndexModel{
		s.content: {
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "order", Value: 1}}},
		},
		s.contacts: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.activity: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
	for col, indexes := range plan {
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", col.Name(), err)
		}
	}
	return nil
}

type contentDoc struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"type"`
	Order     int       `bson:"order"`
	Visible   bool      `bson:"visible"`
	Fields    bson.M    `bson:"fields"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toContentDoc(r *domain.Record) contentDoc {
	return contentDoc{
		ID:        r.ID,
		Type:      string(r.Type),
		Order:     r.Order,
		Visible:   r.Visible,
		Fields:    bson.M(r.Fields),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (d contentDoc) toDomain() *domain.Record {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		if arr, ok := v.(primitive.A); ok {
			v = []any(arr)
		}
		fields[k] = v
	}
	return &domain.Record{
		ID:        d.ID,
		Type:      domain.EntityType(d.Type),
		Order:     d.Order,
		Visible:   d.Visible,
		Fields:    domain.NormalizeFields(fields),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

var listOrder = bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// withTransaction runs fn in a session transaction. The driver retries fn
// on transient errors, including write conflicts with a concurrent
// transaction, so fn must not keep state between attempts.
func (s *Store) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// inTransaction is withTransaction plus a bump of the per-type lock document,
// so concurrent mutators of one collection conflict and are retried instead
// of interleaving.
func (s *Store) inTransaction(ctx context.Context, t domain.EntityType, fn func(sc mongo.SessionContext) error) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		_, err := s.locks.UpdateOne(sc,
			bson.M{"_id": string(t)},
			bson.M{"$inc": bson.M{"version": 1}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
		return fn(sc)
	})
}

func (s *Store) List(ctx context.Context, t domain.EntityType) ([]*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := s.content.Find(ctx, bson.M{"type": string(t)}, options.Find().SetSort(listOrder))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	var docs []contentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list %s: decode: %w", t, err)
	}

	out := make([]*domain.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, t domain.EntityType, id string) (*domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d contentDoc
	err := s.content.FindOne(ctx, bson.M{"_id": id, "type": string(t)}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	return d.toDomain(), nil
}

func (s *Store) Create(ctx context.Context, rec *domain.Record, order *int) (*domain.Record, error) {
	doc := toContentDoc(rec)
	err := s.inTransaction(ctx, rec.Type, func(sc mongo.SessionContext) error {
		filter := bson.M{"type": doc.Type}
		if order != nil {
			filter["order"] = *order
			n, err := s.content.CountDocuments(sc, filter)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("order %d of %s is taken: %w", *order, rec.Type, domain.ErrConflict)
			}
			doc.Order = *order
		} else {
			var last contentDoc
			err := s.content.FindOne(sc, filter,
				options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}).SetProjection(bson.M{"order": 1}),
			).Decode(&last)
			switch {
			case errors.Is(err, mongo.ErrNoDocuments):
				doc.Order = 0
			case err != nil:
				return err
			default:
				doc.Order = last.Order + 1
			}
		}

		_, err := s.content.InsertOne(sc, doc)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s already exists: %w", rec.Type, rec.ID, domain.ErrConflict)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", rec.Type, err)
	}
	return doc.toDomain(), nil
}

func (s *Store) Update(ctx context.Context, t domain.EntityType, id string, mutate func(*domain.Record) error) (*domain.Record, error) {
	var out *domain.Record
	err := s.inTransaction(ctx, t, func(sc mongo.SessionContext) error {
		var d contentDoc
		err := s.content.FindOne(sc, bson.M{"_id": id, "type": string(t)}).Decode(&d)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		draft := d.toDomain()
		if err := mutate(draft); err != nil {
			return err
		}
		d.Fields = bson.M(draft.Fields)
		d.Visible = draft.Visible
		d.UpdatedAt = draft.UpdatedAt.UTC()
		if _, err := s.content.UpdateOne(sc,
			bson.M{"_id": id, "type": string(t)},
			bson.M{"$set": bson.M{"fields": d.Fields, "visible": d.Visible, "updated_at": d.UpdatedAt}},
		); err != nil {
			return err
		}
		out = d.toDomain()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", t, id, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, t domain.EntityType, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.content.DeleteOne(ctx, bson.M{"_id": id, "type": string(t)})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", t, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) Reorder(ctx context.Context, t domain.EntityType, ids []string) error {
	return s.inTransaction(ctx, t, func(sc mongo.SessionContext) error {
		raw, err := s.content.Distinct(sc, "_id", bson.M{"type": string(t)})
		if err != nil {
			return err
		}
		current := make([]string, 0, len(raw))
		for _, v := range raw {
			if id, ok := v.(string); ok {
				current = append(current, id)
			}
		}
		if err := domain.CheckReorder(t, ids, current); err != nil {
			return err
		}
		return s.writeOrders(sc, ids)
	})
}

func (s *Store) Compact(ctx context.Context, t domain.EntityType) error {
	return s.inTransaction(ctx, t, func(sc mongo.SessionContext) error {
		cur, err := s.content.Find(sc, bson.M{"type": string(t)},
			options.Find().SetSort(listOrder).SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		var docs []contentDoc
		if err := cur.All(sc, &docs); err != nil {
			return err
		}
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		return s.writeOrders(sc, ids)
	})
}

// writeOrders sets order = index for every id in one bulk write.
func (s *Store) writeOrders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(ids))
	for i, id := range ids {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"order": i}})
	}
	_, err := s.content.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}
