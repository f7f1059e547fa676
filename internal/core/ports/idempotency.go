package ports

import (
	"context"
	"time"
)

// IdempotentResponse is what gets recorded for a request carrying an
// Idempotency-Key. InProgress marks the provisional lock taken before the
// handler runs.
type IdempotentResponse struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// IdempotencyStore persists idempotent responses by key.
type IdempotencyStore interface {
	// Reserve stores entry only if key is free and reports whether it did.
	Reserve(ctx context.Context, key string, entry IdempotentResponse) (bool, error)
	// Load returns the entry for key, or nil when there is none.
	Load(ctx context.Context, key string) (*IdempotentResponse, error)
	Complete(ctx context.Context, key string, entry IdempotentResponse) error
	Release(ctx context.Context, key string) error
}
