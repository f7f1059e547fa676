package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/makers/loans-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Lookups of missing records return domain.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]*domain.User, error)
}

// LoanRepository defines persistence operations for loans.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	Update(ctx context.Context, loan *domain.Loan) error
	List(ctx context.Context) ([]*domain.Loan, error)
	// ListActiveByUser returns the active loans owned by userID.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error)
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Users UserRepository
	Loans LoanRepository
}

// UnitOfWork runs fn inside a single transaction. All writes made through
// the given repositories are committed when fn returns nil and discarded
// otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}
