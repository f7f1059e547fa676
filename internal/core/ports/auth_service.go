package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/makers/loans-api/internal/core/domain"
)

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Username string
	Password string
}

// RegisterInput carries a registration request. Caller is the authenticated
// identity making the request, or the zero Identity for anonymous sign-ups.
type RegisterInput struct {
	Username string
	Password string
	Role     domain.Role
	Caller   domain.Identity
}

// AuthResult is returned by both login and registration.
type AuthResult struct {
	Token    string
	UserID   uuid.UUID
	Username string
	Role     domain.Role
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
}
