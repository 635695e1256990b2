package ports

import (
	"context"
	"time"
)

// ContactInput is a public contact form payload.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Company string
	Message string
}

// ContactService accepts public contact form submissions.
type ContactService interface {
	// Submit stores a submission from source (the client address) and returns its id.
	Submit(ctx context.Context, source string, in ContactInput) (string, error)
}

// RateLimiter counts attempts per key inside a window.
type RateLimiter interface {
	// Allow records one attempt for key. When the budget is exhausted it
	// returns false and the time until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}
