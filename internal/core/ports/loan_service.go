package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/makers/loans-api/internal/core/domain"
)

// CreateLoanInput carries a loan request. The owner is always the caller.
type CreateLoanInput struct {
	Amount string
	Term   string
}

// ChangeLoanStateInput carries an administrator's decision on a loan.
type ChangeLoanStateInput struct {
	LoanID   uuid.UUID
	NewState domain.LoanState
}

// LoanView is the projection of a loan returned to callers.
type LoanView struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Amount string
	Term   string
	State  domain.LoanState
	Active bool
}

// LoanService defines the loan use cases. Every operation receives the
// verified identity of the caller explicitly.
type LoanService interface {
	Create(ctx context.Context, caller domain.Identity, in CreateLoanInput) (*LoanView, error)
	ChangeState(ctx context.Context, caller domain.Identity, in ChangeLoanStateInput) (*LoanView, error)
	ListMine(ctx context.Context, caller domain.Identity) ([]LoanView, error)
	ListByUser(ctx context.Context, caller domain.Identity, userID uuid.UUID) ([]LoanView, error)
}

// ToLoanView projects a loan onto its response view.
func ToLoanView(l *domain.Loan) LoanView {
	return LoanView{
		ID:     l.ID,
		UserID: l.UserID,
		Amount: l.Amount,
		Term:   l.Term,
		State:  l.State,
		Active: l.Active,
	}
}
