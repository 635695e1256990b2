package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil, zerolog.Nop())

	c, rec := newCtx(t, http.MethodGet, "/api/health", "")
	if err := h.Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp livenessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "ok" || resp.Timestamp.IsZero() {
		t.Fatalf("unexpected liveness payload: %+v", resp)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	cases := []struct {
		name string
		deps map[string]Pinger
		code int
	}{
		{"all healthy", map[string]Pinger{"storage": ok, "redis": ok}, http.StatusOK},
		{"one down", map[string]Pinger{"storage": ok, "redis": down}, http.StatusServiceUnavailable},
		{"no deps", nil, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.deps, zerolog.Nop())
			c, rec := newCtx(t, http.MethodGet, "/api/health/ready", "")
			if err := h.Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(resp.Dependencies) != len(tc.deps) {
				t.Fatalf("expected %d dependencies, got %+v", len(tc.deps), resp.Dependencies)
			}
			if tc.code != http.StatusOK && resp.Dependencies["redis"].Status != "unhealthy" {
				t.Fatalf("expected redis to be reported unhealthy: %+v", resp)
			}
		})
	}
}

func TestHealthHandler_ReadinessHidesErrors(t *testing.T) {
	var logged strings.Builder
	down := pingFunc(func(context.Context) error {
		return errors.New("dial tcp 10.1.2.3:27017: connection refused")
	})
	h := NewHealthHandler(map[string]Pinger{"mongodb": down}, zerolog.New(&logged))

	c, rec := newCtx(t, http.MethodGet, "/api/health/ready", "")
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.1.2.3") || strings.Contains(rec.Body.String(), "refused") {
		t.Fatalf("backend error leaked to the response: %s", rec.Body.String())
	}
	if !strings.Contains(logged.String(), "connection refused") || !strings.Contains(logged.String(), "mongodb") {
		t.Fatalf("expected the failure to be logged, got %q", logged.String())
	}
}
