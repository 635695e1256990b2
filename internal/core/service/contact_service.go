package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
	"github.com/uxfolio/portfolio-cms/internal/core/schema"
	"github.com/uxfolio/portfolio-cms/internal/pkg/metrics"
)

// DefaultMaxMessageLen bounds the message body when no limit is configured.
const DefaultMaxMessageLen = 5000

type contactForm struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"max=200"`
	Company string `json:"company" validate:"max=120"`
	Message string `json:"message" validate:"required"`
}

type contactService struct {
	repo       ports.ContactRepository
	limiter    ports.RateLimiter
	validate   *validator.Validate
	maxMessage int
	now        func() time.Time
	log        zerolog.Logger
}

// NewContactService returns a ContactService. maxMessage <= 0 selects
// DefaultMaxMessageLen.
func NewContactService(
	repo ports.ContactRepository,
	limiter ports.RateLimiter,
	maxMessage int,
	log zerolog.Logger,
) ports.ContactService {
	if maxMessage <= 0 {
		maxMessage = DefaultMaxMessageLen
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &contactService{
		repo:       repo,
		limiter:    limiter,
		validate:   v,
		maxMessage: maxMessage,
		now:        time.Now,
		log:        log,
	}
}

// Submit rate-limits by source, validates and stores one submission.
func (s *contactService) Submit(ctx context.Context, source string, in ports.ContactInput) (string, error) {
	// 1. Rate limit before any other work.
	allowed, retryAfter, err := s.limiter.Allow(ctx, "contact:"+source)
	if err != nil {
		s.log.Warn().Err(err).Str("source", source).Msg("rate limit check failed, accepting submission")
	} else if !allowed {
		metrics.ContactSubmissionsTotal.WithLabelValues("rate_limited").Inc()
		s.log.Info().Str("source", source).Dur("retry_after", retryAfter).Msg("contact submission rate limited")
		return "", &domain.RateLimitError{RetryAfter: retryAfter}
	}

	// 2. Validate every field.
	form := contactForm{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Company: strings.TrimSpace(in.Company),
		Message: strings.TrimSpace(in.Message),
	}
	if err := s.check(form); err != nil {
		metrics.ContactSubmissionsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}

	// 3. Store as new.
	now := s.now().UTC()
	sub := &domain.ContactSubmission{
		ID:        uuid.NewString(),
		Name:      form.Name,
		Email:     form.Email,
		Subject:   form.Subject,
		Company:   form.Company,
		Message:   form.Message,
		Source:    source,
		Status:    domain.ContactNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		metrics.ContactSubmissionsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("failed to store contact submission")
		return "", fmt.Errorf("submit contact: %w: %v", domain.ErrInternal, err)
	}

	metrics.ContactSubmissionsTotal.WithLabelValues("accepted").Inc()
	s.log.Info().Str("id", sub.ID).Str("source", source).Msg("contact submission stored")
	return sub.ID, nil
}

func (s *contactService) check(form contactForm) error {
	verr := &domain.ValidationError{}
	if err := s.validate.Struct(form); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return fmt.Errorf("submit contact: %w: %v", domain.ErrInternal, err)
		}
		for _, fe := range ve {
			verr.Add(fe.Field(), schema.RuleMessage(fe))
		}
	}
	if n := utf8.RuneCountInString(form.Message); n > s.maxMessage {
		verr.Add("message", fmt.Sprintf("must be at most %d characters", s.maxMessage))
	}
	return verr.OrNil()
}
