package domain

import (
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoanState represents the lifecycle state of a loan request.
type LoanState string

const (
	LoanPending  LoanState = "Pending"
	LoanAccepted LoanState = "Accepted"
	LoanRejected LoanState = "Rejected"
)

const (
	TermMaxLen = 50
	// AmountMaxLen matches the width of the stored amount column.
	AmountMaxLen = 32
)

// ParseLoanState accepts the canonical state names, case-insensitively.
func ParseLoanState(s string) (LoanState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return LoanPending, true
	case "accepted":
		return LoanAccepted, true
	case "rejected":
		return LoanRejected, true
	}
	return "", false
}

// IsDecision reports whether s is a state an administrator may set.
func (s LoanState) IsDecision() bool {
	return s == LoanAccepted || s == LoanRejected
}

// Loan is a loan request owned by one user.
type Loan struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    string
	Term      string
	State     LoanState
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLoan builds a pending, active loan for userID.
func NewLoan(userID uuid.UUID, amount, term string) *Loan {
	now := time.Now().UTC()
	return &Loan{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Term:      term,
		State:     LoanPending,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (l *Loan) Decided() bool { return l.State != LoanPending }

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ValidAmount reports whether s is a plain decimal number ("500", "500.25")
// strictly greater than zero and at most AmountMaxLen characters long. Signs,
// exponents and base prefixes are refused.
func ValidAmount(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) > AmountMaxLen || !amountPattern.MatchString(s) {
		return false
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return false
	}
	return r.Sign() > 0
}

// LoanEvent is emitted after a loan change has been committed.
type LoanEvent struct {
	Type       string    `json:"type"`
	LoanID     uuid.UUID `json:"loan_id"`
	UserID     uuid.UUID `json:"user_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	State      LoanState `json:"state"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventLoanRequested = "loan.requested"
	EventLoanDecided   = "loan.decided"
)
