package memory

import (
	"context"
	"testing"
	"time"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(*testing.T) ports.Store { return New() })
}

func TestUserRepository_Contract(t *testing.T) {
	storetest.RunUsers(t, func(*testing.T) ports.AuthRepository { return NewUserRepository() })
}

func TestStore_CallersCannotMutateStoredRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	rec := &domain.Record{
		ID:        "r1",
		Type:      domain.EntitySkills,
		Visible:   true,
		Fields:    map[string]any{"name": "Figma", "keywords": []string{"prototyping"}},
		CreatedAt: time.Now(),
	}
	if _, err := s.Create(ctx, rec, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.Fields["name"] = "changed"

	list, _ := s.List(ctx, domain.EntitySkills)
	list[0].Fields["keywords"].([]string)[0] = "changed"
	list[0].Order = 42

	got, _ := s.Get(ctx, domain.EntitySkills, "r1")
	if got.Fields["name"] != "Figma" {
		t.Errorf("input map aliased into store: %v", got.Fields["name"])
	}
	if got.Fields["keywords"].([]string)[0] != "prototyping" {
		t.Errorf("listed slice aliased into store")
	}
	if got.Order != 0 {
		t.Errorf("listed record aliased into store, order %d", got.Order)
	}
}
