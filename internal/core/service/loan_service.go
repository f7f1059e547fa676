package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

// LoanOptions tunes loan lifecycle rules.
type LoanOptions struct {
	// AllowRedecision lets an administrator overwrite a decision that was
	// already taken. When false only Pending loans can be decided.
	AllowRedecision bool
}

// LoanService implements the loan lifecycle use cases.
type LoanService struct {
	uow    ports.UnitOfWork
	events ports.LoanEventPublisher
	opts   LoanOptions
	log    zerolog.Logger
}

// NewLoanService returns a LoanService. events may be nil.
func NewLoanService(uow ports.UnitOfWork, events ports.LoanEventPublisher, opts LoanOptions, log zerolog.Logger) *LoanService {
	return &LoanService{uow: uow, events: events, opts: opts, log: log}
}

// Create registers a new pending loan owned by the caller.
func (s *LoanService) Create(ctx context.Context, caller domain.Identity, in ports.CreateLoanInput) (*ports.LoanView, error) {
	amount := strings.TrimSpace(in.Amount)
	term := strings.TrimSpace(in.Term)
	switch {
	case amount == "":
		return nil, domain.Reason(domain.ErrInvalidInput, "amount is required")
	case len(amount) > domain.AmountMaxLen:
		return nil, domain.Reason(domain.ErrInvalidInput, fmt.Sprintf("amount cannot exceed %d characters", domain.AmountMaxLen))
	case !domain.ValidAmount(amount):
		return nil, domain.Reason(domain.ErrInvalidInput, "amount must be a valid number greater than zero")
	case term == "":
		return nil, domain.Reason(domain.ErrInvalidInput, "term is required")
	case utf8.RuneCountInString(term) > domain.TermMaxLen:
		return nil, domain.Reason(domain.ErrInvalidInput, fmt.Sprintf("term cannot exceed %d characters", domain.TermMaxLen))
	}

	var loan *domain.Loan
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		owner, err := r.Users.GetByID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Reason(domain.ErrNotFound, "user does not exist")
			}
			return err
		}
		if !owner.Active {
			return domain.Reason(domain.ErrAccountInactive, "user is not active")
		}

		loan = domain.NewLoan(owner.ID, amount, term)
		return r.Loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, s.fail(err, "loan request rejected", caller)
	}

	s.log.Info().
		Str("loan_id", loan.ID.String()).
		Str("user_id", loan.UserID.String()).
		Msg("loan requested")
	s.publish(ctx, domain.EventLoanRequested, loan, caller.UserID)

	view := ports.ToLoanView(loan)
	return &view, nil
}

// ChangeState records an administrator's decision on a loan. The rules are
// checked in order: acting administrator, target loan, requested state and
// finally self-approval.
func (s *LoanService) ChangeState(ctx context.Context, caller domain.Identity, in ports.ChangeLoanStateInput) (*ports.LoanView, error) {
	var loan *domain.Loan
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		admin, err := r.Users.GetByID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Reason(domain.ErrUnauthorized, "user not found")
			}
			return err
		}
		if !admin.IsAdmin() {
			return domain.Reason(domain.ErrUnauthorized, "only administrators can change the state of a loan")
		}
		if !admin.Active {
			return domain.Reason(domain.ErrUnauthorized, "administrator account is not active")
		}

		l, err := r.Loans.GetByID(ctx, in.LoanID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Reason(domain.ErrNotFound, "loan does not exist")
			}
			return err
		}
		if !l.Active {
			return domain.Reason(domain.ErrInvalidState, "loan is not active")
		}
		if !in.NewState.IsDecision() {
			return domain.Reason(domain.ErrInvalidInput, "state can only be Accepted or Rejected")
		}
		if l.UserID == admin.ID {
			return domain.Reason(domain.ErrUnauthorized, "an administrator cannot approve or reject their own loan")
		}
		if l.Decided() && !s.opts.AllowRedecision {
			return domain.Reason(domain.ErrInvalidState, "loan has already been decided")
		}

		l.State = in.NewState
		l.UpdatedAt = time.Now().UTC()
		if err := r.Loans.Update(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "loan decision rejected", caller)
	}

	s.log.Info().
		Str("loan_id", loan.ID.String()).
		Str("state", string(loan.State)).
		Str("admin_id", caller.UserID.String()).
		Msg("loan decided")
	s.publish(ctx, domain.EventLoanDecided, loan, caller.UserID)

	view := ports.ToLoanView(loan)
	return &view, nil
}

// ListMine returns the caller's active loans.
func (s *LoanService) ListMine(ctx context.Context, caller domain.Identity) ([]ports.LoanView, error) {
	var loans []*domain.Loan
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		var err error
		loans, err = r.Loans.ListActiveByUser(ctx, caller.UserID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return toViews(loans), nil
}

// ListByUser returns the active loans of userID. Non-administrators may only
// list their own.
func (s *LoanService) ListByUser(ctx context.Context, caller domain.Identity, userID uuid.UUID) ([]ports.LoanView, error) {
	if !caller.IsAdmin() && userID != caller.UserID {
		return nil, domain.Reason(domain.ErrUnauthorized, "you can only see your own loans unless you are an administrator")
	}

	var loans []*domain.Loan
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		if _, err := r.Users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Reason(domain.ErrNotFound, "user does not exist")
			}
			return err
		}
		var err error
		loans, err = r.Loans.ListActiveByUser(ctx, userID)
		return err
	})
	if err != nil {
		if domain.IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("list loans by user: %w", err)
	}
	return toViews(loans), nil
}

func (s *LoanService) fail(err error, msg string, caller domain.Identity) error {
	if domain.IsDomainError(err) {
		s.log.Warn().Err(err).Str("user_id", caller.UserID.String()).Msg(msg)
		return err
	}
	s.log.Error().Err(err).Str("user_id", caller.UserID.String()).Msg(msg)
	return fmt.Errorf("%s: %w", msg, err)
}

// publish hands the event over after commit. Delivery problems are logged
// and never undo the committed change.
func (s *LoanService) publish(ctx context.Context, typ string, loan *domain.Loan, actor uuid.UUID) {
	if s.events == nil {
		return
	}
	event := domain.LoanEvent{
		Type:       typ,
		LoanID:     loan.ID,
		UserID:     loan.UserID,
		ActorID:    actor,
		State:      loan.State,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("loan_id", loan.ID.String()).Str("type", typ).Msg("loan event not published")
	}
}

func toViews(loans []*domain.Loan) []ports.LoanView {
	out := make([]ports.LoanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, ports.ToLoanView(l))
	}
	return out
}
