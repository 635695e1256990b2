package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/service"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/memory"
)

func TestActivityHandler_List(t *testing.T) {
	svc := service.NewContentService(memory.New(), zerolog.Nop())
	for _, n := range []string{"Figma", "Sketch"} {
		if _, err := svc.Create(context.Background(), editorActor, domain.EntitySkills,
			map[string]any{"name": n, "category": "Design"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	h := NewActivityHandler(svc)

	c, rec := newCtx(t, http.MethodGet, "/api/admin/activity?limit=1", "")
	if err := h.List(withActor(c, adminActor)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp pageResponse[domain.ActivityEntry]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 1 || resp.Page != 1 {
		t.Fatalf("unexpected page: %+v", resp)
	}
	if resp.Items[0].ActorID != editorActor.UserID || resp.Items[0].Action != domain.ActionCreate {
		t.Fatalf("unexpected entry: %+v", resp.Items[0])
	}
}

func TestActivityHandler_List_AdminOnly(t *testing.T) {
	h := NewActivityHandler(service.NewContentService(memory.New(), zerolog.Nop()))

	c, _ := newCtx(t, http.MethodGet, "/api/admin/activity", "")
	if err := h.List(withActor(c, editorActor)); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
