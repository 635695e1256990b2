package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/core/service"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/memory"
)

type stubContactService struct {
	submitFn func(ctx context.Context, source string, in ports.ContactInput) (string, error)
}

func (s *stubContactService) Submit(ctx context.Context, source string, in ports.ContactInput) (string, error) {
	return s.submitFn(ctx, source, in)
}

func TestContactHandler_Submit(t *testing.T) {
	stub := &stubContactService{
		submitFn: func(ctx context.Context, source string, in ports.ContactInput) (string, error) {
			if source != "203.0.113.7" {
				t.Fatalf("unexpected source: %q", source)
			}
			if in.Name != "Ada" || in.Email != "ada@example.com" || in.Message != "Hello" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return "sub-1", nil
		},
	}
	h := NewContactHandler(stub, nil)

	c, rec := newCtx(t, http.MethodPost, "/api/contact", `{"name":"Ada","email":"ada@example.com","message":"Hello"}`)
	c.Request().RemoteAddr = "203.0.113.7:52100"
	if err := h.Submit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp contactResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "sub-1" || resp.Status != domain.ContactNew {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestContactHandler_Submit_RateLimited(t *testing.T) {
	stub := &stubContactService{
		submitFn: func(ctx context.Context, source string, in ports.ContactInput) (string, error) {
			return "", &domain.RateLimitError{RetryAfter: 30 * time.Second}
		},
	}
	h := NewContactHandler(stub, nil)

	c, _ := newCtx(t, http.MethodPost, "/api/contact", `{"name":"Ada"}`)
	if err := h.Submit(c); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func newInbox(t *testing.T) (*ContactHandler, *memory.Store, []string) {
	t.Helper()
	store := memory.New()
	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	ids := []string{"sub-a", "sub-b", "sub-c"}
	for i, id := range ids {
		err := store.CreateSubmission(context.Background(), &domain.ContactSubmission{
			ID:        id,
			Name:      "Sender",
			Email:     "sender@example.com",
			Message:   "Hi",
			Status:    domain.ContactNew,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewContactHandler(nil, service.NewContentService(store, zerolog.Nop())), store, ids
}

func TestContactHandler_List(t *testing.T) {
	h, _, ids := newInbox(t)

	c, rec := newCtx(t, http.MethodGet, "/api/admin/contact?page=1&limit=2", "")
	if err := h.List(withActor(c, adminActor)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp pageResponse[domain.ContactSubmission]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 3 || resp.TotalPages != 2 || len(resp.Items) != 2 {
		t.Fatalf("unexpected page: %+v", resp)
	}
	if resp.Items[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %s", resp.Items[0].ID)
	}
}

func TestContactHandler_List_BadQuery(t *testing.T) {
	h, _, _ := newInbox(t)

	c, _ := newCtx(t, http.MethodGet, "/api/admin/contact?page=abc", "")
	if err := h.List(withActor(c, adminActor)); err == nil {
		t.Fatalf("expected a bind error for a non-numeric page")
	}

	c, _ = newCtx(t, http.MethodGet, "/api/admin/contact?status=spam", "")
	var ve *domain.ValidationError
	if err := h.List(withActor(c, adminActor)); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestContactHandler_StatusAndDelete(t *testing.T) {
	h, store, ids := newInbox(t)

	c, rec := newCtx(t, http.MethodPatch, "/api/admin/contact/"+ids[0]+"/status", `{"status":"read"}`, "id", ids[0])
	if err := h.UpdateStatus(withActor(c, editorActor)); err != nil {
		t.Fatalf("update status: %v", err)
	}
	var sub domain.ContactSubmission
	_ = json.Unmarshal(rec.Body.Bytes(), &sub)
	if sub.Status != domain.ContactRead {
		t.Fatalf("expected read, got %s", sub.Status)
	}

	c, _ = newCtx(t, http.MethodPatch, "/api/admin/contact/"+ids[0]+"/status", `{}`, "id", ids[0])
	var ve *domain.ValidationError
	if err := h.UpdateStatus(withActor(c, editorActor)); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for a missing status, got %v", err)
	}

	c, rec = newCtx(t, http.MethodDelete, "/api/admin/contact/"+ids[0], "", "id", ids[0])
	if err := h.Delete(withActor(c, adminActor)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, err := store.GetSubmission(context.Background(), ids[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected submission to be gone, got %v", err)
	}

	c, _ = newCtx(t, http.MethodGet, "/api/admin/contact/"+ids[0], "", "id", ids[0])
	if err := h.Get(withActor(c, adminActor)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
