package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

type stubAuthService struct {
	loginFn  func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	meFn     func(ctx context.Context, actor domain.Actor) (*domain.User, error)
	changeFn func(ctx context.Context, actor domain.Actor, in ports.ChangeCredentialsInput) (*domain.User, error)
}

func (s *stubAuthService) Verify(string) (domain.Claims, error) {
	return domain.Claims{}, domain.ErrTokenInvalid
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return s.meFn(ctx, actor)
}

func (s *stubAuthService) ChangeCredentials(ctx context.Context, actor domain.Actor, in ports.ChangeCredentialsInput) (*domain.User, error) {
	return s.changeFn(ctx, actor, in)
}

var testCookie = CookieConfig{Name: "portfolio_session", Secure: true}

func TestAuthHandler_Login_Success(t *testing.T) {
	expires := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			if username != "carol" || password != "s3cret-pass" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.LoginResult{
				Token:     "token123",
				ExpiresAt: expires,
				User:      &domain.User{ID: "u-1", Username: "carol", Role: domain.RoleAdmin, PasswordHash: "hash"},
			}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	c, rec := newCtx(t, http.MethodPost, "/api/admin/login", `{"username":"carol","password":"s3cret-pass"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	if resp["expires_at"] != "2025-03-02T12:00:00Z" {
		t.Fatalf("unexpected expires_at: %v", resp["expires_at"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "carol" || user["role"] != "admin" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != "portfolio_session" || ck.Value != "token123" || !ck.HttpOnly || !ck.Secure {
		t.Fatalf("unexpected cookie: %+v", ck)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	c, rec := newCtx(t, http.MethodPost, "/api/admin/login", `{"username":"carol","password":"bad"}`)
	err := handler.Login(c)

	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookie must be set on failure")
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	c, _ := newCtx(t, http.MethodPost, "/api/admin/login", `{}`)
	err := handler.Login(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 2 || ve.Errors[0].Field != "username" || ve.Errors[1].Field != "password" {
		t.Fatalf("unexpected field errors: %+v", ve.Errors)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	c, _ := newCtx(t, http.MethodPost, "/api/admin/login", "{")
	err := handler.Login(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{}, testCookie)

	c, rec := newCtx(t, http.MethodPost, "/api/admin/logout", "")
	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring empty cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	stub := &stubAuthService{
		meFn: func(ctx context.Context, actor domain.Actor) (*domain.User, error) {
			return &domain.User{ID: actor.UserID, Username: actor.Username, Role: actor.Role}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	c, rec := newCtx(t, http.MethodGet, "/api/admin/me", "")
	if err := handler.Me(withActor(c, adminActor)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User == nil || resp.User.ID != "u-admin" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
}

func TestAuthHandler_Me_RequiresActor(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{}, testCookie)

	c, _ := newCtx(t, http.MethodGet, "/api/admin/me", "")
	if err := handler.Me(c); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthHandler_ChangeCredentials(t *testing.T) {
	var got ports.ChangeCredentialsInput
	stub := &stubAuthService{
		changeFn: func(ctx context.Context, actor domain.Actor, in ports.ChangeCredentialsInput) (*domain.User, error) {
			if actor.UserID != "u-admin" {
				t.Fatalf("unexpected actor: %+v", actor)
			}
			got = in
			return &domain.User{ID: actor.UserID, Username: in.NewUsername, Role: actor.Role}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	c, rec := newCtx(t, http.MethodPut, "/api/admin/credentials",
		`{"current_password":"s3cret-pass","new_username":"caroline","new_password":"longer-secret"}`)
	if err := handler.ChangeCredentials(withActor(c, adminActor)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := ports.ChangeCredentialsInput{CurrentPassword: "s3cret-pass", NewUsername: "caroline", NewPassword: "longer-secret"}
	if got != want {
		t.Fatalf("unexpected input: %+v", got)
	}
}
