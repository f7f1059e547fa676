package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidAmount(t *testing.T) {
	cases := map[string]bool{
		"1":                                      true,
		"5000.00":                                true,
		" 250.5 ":                                true,
		"0.01":                                   true,
		"0":                                      false,
		"0.00":                                   false,
		"-1":                                     false,
		"":                                       false,
		"abc":                                    false,
		"1e3":                                    false,
		"1/2":                                    false,
		"0x10":                                   false,
		"5.":                                     false,
		".5":                                     false,
		strings.Repeat("9", AmountMaxLen):        true,
		strings.Repeat("9", AmountMaxLen+1):      false,
		"1" + strings.Repeat("0", 40):            false,
		"1." + strings.Repeat("5", AmountMaxLen): false,
		"1,000.00":                               false,
	}
	for in, want := range cases {
		if got := ValidAmount(in); got != want {
			t.Fatalf("ValidAmount(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("admin"); !ok || r != RoleAdmin {
		t.Fatalf("expected Admin, got %q %v", r, ok)
	}
	if r, ok := ParseRole(" User "); !ok || r != RoleUser {
		t.Fatalf("expected User, got %q %v", r, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestParseLoanState(t *testing.T) {
	s, ok := ParseLoanState("ACCEPTED")
	if !ok || s != LoanAccepted || !s.IsDecision() {
		t.Fatalf("expected Accepted decision, got %q %v", s, ok)
	}
	if LoanPending.IsDecision() {
		t.Fatalf("Pending is not a decision")
	}
	if _, ok := ParseLoanState("approved"); ok {
		t.Fatalf("expected unknown state to fail")
	}
}

func TestNewLoan(t *testing.T) {
	owner := uuid.New()
	l := NewLoan(owner, "100", "6 months")
	if l.State != LoanPending || !l.Active || l.UserID != owner || l.Decided() {
		t.Fatalf("unexpected new loan: %+v", l)
	}
	l.State = LoanRejected
	if !l.Decided() {
		t.Fatalf("Rejected loan should be decided")
	}
}

func TestReason(t *testing.T) {
	err := Reason(ErrNotFound, "loan does not exist")
	if err.Error() != "loan does not exist" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	wrapped := fmt.Errorf("change state: %w", err)
	if !errors.Is(wrapped, ErrNotFound) || !IsDomainError(wrapped) {
		t.Fatalf("wrapped reason should match its kind")
	}
	if IsDomainError(errors.New("boom")) {
		t.Fatalf("plain error is not a domain error")
	}
}
