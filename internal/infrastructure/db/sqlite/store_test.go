package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/storetest"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "portfolio_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return NewStore(openTestDB(t)) })
}

func TestUserRepository_Contract(t *testing.T) {
	storetest.RunUsers(t, func(t *testing.T) ports.AuthRepository { return NewUserRepository(openTestDB(t)) })
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
	if err := NewStore(db).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
