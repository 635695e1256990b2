package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/storetest"
)

// These tests need a MongoDB replica set, e.g.
//
//	MONGO_TEST_URI="mongodb://localhost:27017/?replicaSet=rs0" go test ./internal/infrastructure/db/mongo/
func testDatabase(t *testing.T) (*Store, *MongoAuthRepository) {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: "portfolio_test_" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	store := NewStore(client, db)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	users := NewAuthRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure user indexes: %v", err)
	}
	return store, users
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store {
		store, _ := testDatabase(t)
		return store
	})
}

func TestAuthRepository_Contract(t *testing.T) {
	storetest.RunUsers(t, func(t *testing.T) ports.AuthRepository {
		_, users := testDatabase(t)
		return users
	})
}
