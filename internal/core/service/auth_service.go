package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/pkg/metrics"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 8
)

// dummyHash is compared against when the username is unknown so that both
// failure paths spend the same bcrypt work.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("portfolio-dummy-password"), bcrypt.DefaultCost)
	return h
})

type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService implements login, token verification and credential management.
type AuthService struct {
	repo      ports.AuthRepository
	activity  activityRecorder
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewAuthService(
	repo ports.AuthRepository,
	activity ports.ActivityRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	s := &AuthService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
		log:       log,
	}
	s.activity = activityRecorder{repo: activity, log: log, now: s.clock}
	return s
}

// WithClock replaces the time source used to issue and verify tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) clock() time.Time { return s.now() }

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		s.log.Info().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w: %v", domain.ErrInternal, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		s.log.Info().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: sign token: %w: %v", domain.ErrInternal, err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("login succeeded")

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Verify checks signature, algorithm and expiry of a session token.
func (s *AuthService) Verify(token string) (domain.Claims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		metrics.TokenVerificationsTotal.WithLabelValues("expired").Inc()
		return domain.Claims{}, domain.ErrTokenExpired
	case err != nil:
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return domain.Claims{}, domain.ErrTokenInvalid
	}
	if claims.Subject == "" || claims.Role == "" {
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return domain.Claims{}, domain.ErrTokenInvalid
	}

	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	out := domain.Claims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (s *AuthService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrTokenInvalid
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// The account behind a still-valid token was renamed away or removed.
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("me: %w: %v", domain.ErrInternal, err)
	}
	return user, nil
}

func (s *AuthService) ChangeCredentials(ctx context.Context, actor domain.Actor, in ports.ChangeCredentialsInput) (*domain.User, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrTokenInvalid
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	newUsername := strings.TrimSpace(in.NewUsername)
	verr := &domain.ValidationError{}
	if in.CurrentPassword == "" {
		verr.Add("current_password", "is required")
	}
	if newUsername == "" && in.NewPassword == "" {
		verr.Add("new_username", "either new_username or new_password is required")
	}
	if newUsername != "" {
		if n := utf8.RuneCountInString(newUsername); n < minUsernameLen || n > maxUsernameLen {
			verr.Add("new_username", fmt.Sprintf("must be between %d and %d characters", minUsernameLen, maxUsernameLen))
		}
	}
	if in.NewPassword != "" && utf8.RuneCountInString(in.NewPassword) < minPasswordLen {
		verr.Add("new_password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, actor.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("change credentials: %w: %v", domain.ErrInternal, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	var changed []string
	if newUsername != "" && newUsername != user.Username {
		_, err := s.repo.FindByUsername(ctx, newUsername)
		switch {
		case err == nil:
			return nil, domain.ErrUserExists
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("change credentials: %w: %v", domain.ErrInternal, err)
		}
		user.Username = newUsername
		changed = append(changed, "username")
	}
	if in.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("change credentials: hash: %w: %v", domain.ErrInternal, err)
		}
		user.PasswordHash = string(hash)
		changed = append(changed, "password")
	}
	if len(changed) == 0 {
		return user, nil
	}
	user.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, user)
	if errors.Is(err, domain.ErrUserExists) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("change credentials: %w: %v", domain.ErrInternal, err)
	}

	s.activity.record(ctx, actor, domain.ActionCredentialsChange, domain.TargetUser, updated.ID,
		"changed "+strings.Join(changed, " and "))
	s.log.Info().Str("user_id", updated.ID).Strs("changed", changed).Msg("credentials changed")

	return updated, nil
}

// EnsureAdmin creates the admin account when no user with username exists.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if _, err := s.createAdmin(ctx, username, password); err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info().Str("username", username).Msg("admin account seeded")
	return true, nil
}

// ResetAdmin sets username's password and admin role, creating the account
// when it does not exist.
func (s *AuthService) ResetAdmin(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return s.createAdmin(ctx, username, password)
	}
	if err != nil {
		return nil, fmt.Errorf("reset admin: %w", err)
	}
	if err := validateNewCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("reset admin: hash: %w", err)
	}
	user.PasswordHash = string(hash)
	user.Role = domain.RoleAdmin
	user.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, user)
}

func (s *AuthService) createAdmin(ctx context.Context, username, password string) (*domain.User, error) {
	if err := validateNewCredentials(username, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return s.repo.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func validateNewCredentials(username, password string) error {
	verr := &domain.ValidationError{}
	if n := utf8.RuneCountInString(strings.TrimSpace(username)); n < minUsernameLen || n > maxUsernameLen {
		verr.Add("username", fmt.Sprintf("must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	return verr.OrNil()
}

func (s *AuthService) generateToken(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := tokenClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt.UTC().Truncate(time.Second), nil
}
