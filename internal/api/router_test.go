package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/api/handler"
	"github.com/uxfolio/portfolio-cms/internal/core/service"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/db/memory"
	"github.com/uxfolio/portfolio-cms/internal/infrastructure/ratelimit"
)

const (
	testSecret   = "router-test-secret"
	testUser     = "carol"
	testPassword = "s3cret-pass"
	cookieName   = "portfolio_session"
)

func newTestRouter(t *testing.T, opts ...func(*Deps)) *echo.Echo {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New()

	auth := service.NewAuthService(memory.NewUserRepository(), store, testSecret, time.Hour, log)
	if _, err := auth.EnsureAdmin(context.Background(), testUser, testPassword); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	limiter := ratelimit.NewFixedWindow(2, time.Minute)
	t.Cleanup(limiter.Stop)

	deps := Deps{
		Auth:     auth,
		Content:  service.NewContentService(store, log),
		Contact:  service.NewContactService(store, limiter, 0, log),
		Health:   map[string]handler.Pinger{"storage": store},
		Cookie:   handler.CookieConfig{Name: cookieName},
		Log:      log,
		Registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewRouter(deps)
}

type call struct {
	method string
	path   string
	body   string
	token  string
	cookie string
	remote string
	header map[string]string
}

func do(t *testing.T, e *echo.Echo, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	req.RemoteAddr = "198.51.100.9:40000"
	if c.remote != "" {
		req.RemoteAddr = c.remote
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(t, e, call{method: http.MethodPost, path: "/api/admin/login",
		body: fmt.Sprintf(`{"username":%q,"password":%q}`, testUser, testPassword)})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[map[string]any](t, rec)["token"].(string)
}

func TestRouter_Health(t *testing.T) {
	e := newTestRouter(t)

	if rec := do(t, e, call{method: http.MethodGet, path: "/api/health"}); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := do(t, e, call{method: http.MethodGet, path: "/api/health/ready"}); rec.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", rec.Code)
	}
}

func TestRouter_LoginFailures(t *testing.T) {
	e := newTestRouter(t)

	for _, body := range []string{
		`{"username":"carol","password":"wrong"}`,
		`{"username":"nobody","password":"s3cret-pass"}`,
	} {
		rec := do(t, e, call{method: http.MethodPost, path: "/api/admin/login", body: body})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if got := decode[map[string]any](t, rec)["error"]; got != "invalid credentials" {
			t.Fatalf("unknown user and wrong password must look alike, got %v", got)
		}
	}
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	e := newTestRouter(t)

	cases := []call{
		{method: http.MethodGet, path: "/api/admin/skills"},
		{method: http.MethodGet, path: "/api/admin/skills", token: "garbage"},
		{method: http.MethodPost, path: "/api/admin/skills", body: `{"name":"Figma","category":"Design"}`},
		{method: http.MethodGet, path: "/api/admin/activity"},
	}
	for _, c := range cases {
		if rec := do(t, e, c); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", c.method, c.path, rec.Code)
		}
	}
}

func TestRouter_CookieSession(t *testing.T) {
	e := newTestRouter(t)
	token := login(t, e)

	rec := do(t, e, call{method: http.MethodGet, path: "/api/admin/me", cookie: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", rec.Code)
	}
	user := decode[map[string]map[string]any](t, rec)["user"]
	if user["username"] != testUser || user["role"] != "admin" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestRouter_ContentLifecycle(t *testing.T) {
	e := newTestRouter(t)
	token := login(t, e)

	rec := do(t, e, call{method: http.MethodPost, path: "/api/admin/case-studies", token: token, body: `{"title":""}`})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	verr := decode[handler.ValidationErrorBody](t, rec)
	if len(verr.Fields) < 3 {
		t.Fatalf("expected every failed field to be listed, got %+v", verr.Fields)
	}

	var ids []string
	for i := 1; i <= 3; i++ {
		body := fmt.Sprintf(`{"title":"Study %d","slug":"study-%d","summary":"Summary %d"}`, i, i, i)
		rec := do(t, e, call{method: http.MethodPost, path: "/api/admin/case-studies", token: token, body: body})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		ids = append(ids, decode[map[string]any](t, rec)["id"].(string))
	}

	body := fmt.Sprintf(`{"ids":[%q,%q,%q]}`, ids[2], ids[0], ids[1])
	if rec := do(t, e, call{method: http.MethodPost, path: "/api/admin/case-studies/reorder", token: token, body: body}); rec.Code != http.StatusOK {
		t.Fatalf("reorder: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, call{method: http.MethodGet, path: "/api/case-studies"})
	if rec.Code != http.StatusOK {
		t.Fatalf("public list: expected 200, got %d", rec.Code)
	}
	public := decode[[]map[string]any](t, rec)
	if len(public) != 3 || public[0]["id"] != ids[2] || public[1]["id"] != ids[0] || public[2]["id"] != ids[1] {
		t.Fatalf("unexpected public order: %+v", public)
	}

	partial := fmt.Sprintf(`{"ids":[%q,%q]}`, ids[0], ids[1])
	if rec := do(t, e, call{method: http.MethodPost, path: "/api/admin/case-studies/reorder", token: token, body: partial}); rec.Code != http.StatusConflict {
		t.Fatalf("partial reorder: expected 409, got %d", rec.Code)
	}

	if rec := do(t, e, call{method: http.MethodDelete, path: "/api/admin/case-studies/" + ids[0], token: token}); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := do(t, e, call{method: http.MethodGet, path: "/api/admin/case-studies/" + ids[0], token: token}); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
	if rec := do(t, e, call{method: http.MethodGet, path: "/api/podcasts"}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown entity: expected 404, got %d", rec.Code)
	}

	rec = do(t, e, call{method: http.MethodGet, path: "/api/admin/activity?limit=100", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("activity: expected 200, got %d", rec.Code)
	}
	if total := decode[map[string]any](t, rec)["total"]; total != float64(5) {
		t.Fatalf("expected 5 activity entries (3 creates, reorder, delete), got %v", total)
	}
}

func TestRouter_ContactRateLimit(t *testing.T) {
	e := newTestRouter(t)
	body := `{"name":"Ada","email":"ada@example.com","message":"Hello there"}`

	for i := 0; i < 2; i++ {
		if rec := do(t, e, call{method: http.MethodPost, path: "/api/contact", body: body}); rec.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, e, call{method: http.MethodPost, path: "/api/contact", body: body})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected a Retry-After header")
	}

	token := login(t, e)
	rec = do(t, e, call{method: http.MethodGet, path: "/api/admin/contact", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox: expected 200, got %d", rec.Code)
	}
	if total := decode[map[string]any](t, rec)["total"]; total != float64(2) {
		t.Fatalf("expected 2 stored submissions, got %v", total)
	}
}

func TestRouter_ContactRateLimitIgnoresForwardingHeaders(t *testing.T) {
	e := newTestRouter(t)
	body := `{"name":"Ada","email":"ada@example.com","message":"Hello there"}`

	codes := make([]int, 5)
	for i := range codes {
		rec := do(t, e, call{method: http.MethodPost, path: "/api/contact", body: body, header: map[string]string{
			echo.HeaderXForwardedFor: fmt.Sprintf("10.0.0.%d", i+1),
			echo.HeaderXRealIP:       fmt.Sprintf("10.0.1.%d", i+1),
		}})
		codes[i] = rec.Code
	}
	want := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i := range codes {
		if codes[i] != want[i] {
			t.Fatalf("expected %v from one peer with rotating headers, got %v", want, codes)
		}
	}
}

func TestRouter_ContactRateLimitTrustedProxy(t *testing.T) {
	e := newTestRouter(t, func(d *Deps) { d.TrustedProxies = []string{"192.0.2.0/24"} })
	body := `{"name":"Ada","email":"ada@example.com","message":"Hello there"}`
	viaProxy := func(client string) call {
		return call{method: http.MethodPost, path: "/api/contact", body: body, remote: "192.0.2.10:50000",
			header: map[string]string{echo.HeaderXForwardedFor: client}}
	}

	for i := 0; i < 2; i++ {
		if rec := do(t, e, viaProxy("203.0.113.5")); rec.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d", i+1, rec.Code)
		}
	}
	if rec := do(t, e, viaProxy("203.0.113.5")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the same forwarded client, got %d", rec.Code)
	}
	if rec := do(t, e, viaProxy("203.0.113.6")); rec.Code != http.StatusCreated {
		t.Fatalf("another client behind the proxy must have its own budget, got %d", rec.Code)
	}

	// An untrusted peer cannot borrow a forwarded address.
	for i := 0; i < 2; i++ {
		rec := do(t, e, call{method: http.MethodPost, path: "/api/contact", body: body, remote: "198.51.100.20:1234",
			header: map[string]string{echo.HeaderXForwardedFor: fmt.Sprintf("203.0.113.%d", 50+i)}})
		if rec.Code != http.StatusCreated {
			t.Fatalf("untrusted submission %d: expected 201, got %d", i+1, rec.Code)
		}
	}
	rec := do(t, e, call{method: http.MethodPost, path: "/api/contact", body: body, remote: "198.51.100.20:1234",
		header: map[string]string{echo.HeaderXForwardedFor: "203.0.113.99"}})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("untrusted peer must be keyed on its own address, got %d", rec.Code)
	}
}

func TestRouter_ContactValidation(t *testing.T) {
	e := newTestRouter(t)

	rec := do(t, e, call{method: http.MethodPost, path: "/api/contact", body: `{"name":"Ada","email":"not-an-email","message":"Hi"}`})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	verr := decode[handler.ValidationErrorBody](t, rec)
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "email" {
		t.Fatalf("unexpected fields: %+v", verr.Fields)
	}
}

func TestRouter_Metrics(t *testing.T) {
	e := newTestRouter(t)
	do(t, e, call{method: http.MethodGet, path: "/api/health"})

	rec := do(t, e, call{method: http.MethodGet, path: "/metrics"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "portfolio_requests_total") {
		t.Fatalf("expected HTTP request metrics in output")
	}
}
