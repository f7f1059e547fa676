package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

func newLoanService(store *memStore, pub *recordingPublisher, opts LoanOptions) *LoanService {
	if pub == nil {
		return NewLoanService(store, nil, opts, discardLogger)
	}
	return NewLoanService(store, pub, opts, discardLogger)
}

func TestLoanService_Create_Success(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := newLoanService(store, pub, LoanOptions{})
	alice := store.addUser("alice", domain.RoleUser, true)

	view, err := svc.Create(context.Background(), identityOf(alice), ports.CreateLoanInput{Amount: " 5000.00 ", Term: "12 months"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if view.State != domain.LoanPending || !view.Active {
		t.Fatalf("expected active Pending loan, got %+v", view)
	}
	if view.UserID != alice.ID || view.Amount != "5000.00" {
		t.Fatalf("unexpected loan: %+v", view)
	}
	if _, ok := store.loans[view.ID]; !ok {
		t.Fatalf("loan not persisted")
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.EventLoanRequested {
		t.Fatalf("expected one loan.requested event, got %+v", pub.events)
	}
}

func TestLoanService_Create_Validation(t *testing.T) {
	store := newMemStore()
	svc := newLoanService(store, nil, LoanOptions{})
	alice := store.addUser("alice", domain.RoleUser, true)

	cases := map[string]ports.CreateLoanInput{
		"empty amount":     {Amount: "", Term: "12 months"},
		"zero amount":      {Amount: "0", Term: "12 months"},
		"negative amount":  {Amount: "-10", Term: "12 months"},
		"text amount":      {Amount: "lots", Term: "12 months"},
		"empty term":       {Amount: "100", Term: "   "},
		"long term":        {Amount: "100", Term: strings.Repeat("x", 51)},
		"oversized amount": {Amount: "1" + strings.Repeat("0", 40), Term: "12 months"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), identityOf(alice), in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if len(store.loans) != 0 {
		t.Fatalf("invalid requests must not persist loans")
	}
}

func TestLoanService_Create_AmountWidth(t *testing.T) {
	store := newMemStore()
	svc := newLoanService(store, nil, LoanOptions{})
	alice := store.addUser("alice", domain.RoleUser, true)

	_, err := svc.Create(context.Background(), identityOf(alice), ports.CreateLoanInput{
		Amount: strings.Repeat("9", domain.AmountMaxLen+1),
		Term:   "12 months",
	})
	if !errors.Is(err, domain.ErrInvalidInput) || err.Error() != "amount cannot exceed 32 characters" {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := svc.Create(context.Background(), identityOf(alice), ports.CreateLoanInput{
		Amount: strings.Repeat("9", domain.AmountMaxLen),
		Term:   "12 months",
	})
	if err != nil || len(view.Amount) != domain.AmountMaxLen {
		t.Fatalf("widest amount must be accepted: %v", err)
	}
}

func TestLoanService_Create_Owner(t *testing.T) {
	store := newMemStore()
	svc := newLoanService(store, nil, LoanOptions{})
	inactive := store.addUser("ivan", domain.RoleUser, false)
	in := ports.CreateLoanInput{Amount: "100", Term: "6 months"}

	if _, err := svc.Create(context.Background(), domain.Identity{UserID: uuid.New(), Role: domain.RoleUser}, in); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing owner, got %v", err)
	}
	if _, err := svc.Create(context.Background(), identityOf(inactive), in); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestLoanService_ChangeState_Success(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := newLoanService(store, pub, LoanOptions{})
	root := store.addUser("root", domain.RoleAdmin, true)
	alice := store.addUser("alice", domain.RoleUser, true)
	loan := store.addLoan(alice.ID, domain.LoanPending, true)

	view, err := svc.ChangeState(context.Background(), identityOf(root), ports.ChangeLoanStateInput{LoanID: loan.ID, NewState: domain.LoanAccepted})
	if err != nil {
		t.Fatalf("ChangeState returned error: %v", err)
	}
	if view.State != domain.LoanAccepted {
		t.Fatalf("expected Accepted, got %s", view.State)
	}
	if store.loans[loan.ID].State != domain.LoanAccepted {
		t.Fatalf("state not persisted")
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.EventLoanDecided || pub.events[0].ActorID != root.ID {
		t.Fatalf("expected loan.decided event by root, got %+v", pub.events)
	}
}

// Each case violates exactly one rule on top of a valid baseline.
func TestLoanService_ChangeState_Rules(t *testing.T) {
	type fixture struct {
		store  *memStore
		caller domain.Identity
		in     ports.ChangeLoanStateInput
	}
	baseline := func() fixture {
		store := newMemStore()
		root := store.addUser("root", domain.RoleAdmin, true)
		alice := store.addUser("alice", domain.RoleUser, true)
		loan := store.addLoan(alice.ID, domain.LoanPending, true)
		return fixture{
			store:  store,
			caller: identityOf(root),
			in:     ports.ChangeLoanStateInput{LoanID: loan.ID, NewState: domain.LoanRejected},
		}
	}

	cases := []struct {
		name   string
		mutate func(f *fixture)
		want   error
	}{
		{"baseline", func(f *fixture) {}, nil},
		{"caller missing", func(f *fixture) {
			f.caller = domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin}
		}, domain.ErrUnauthorized},
		{"caller not admin", func(f *fixture) {
			u := f.store.addUser("bob", domain.RoleUser, true)
			f.caller = domain.Identity{UserID: u.ID, Role: domain.RoleAdmin}
		}, domain.ErrUnauthorized},
		{"admin inactive", func(f *fixture) {
			f.store.users[f.caller.UserID].Active = false
		}, domain.ErrUnauthorized},
		{"loan missing", func(f *fixture) {
			f.in.LoanID = uuid.New()
		}, domain.ErrNotFound},
		{"loan inactive", func(f *fixture) {
			f.store.loans[f.in.LoanID].Active = false
		}, domain.ErrInvalidState},
		{"state pending", func(f *fixture) {
			f.in.NewState = domain.LoanPending
		}, domain.ErrInvalidInput},
		{"state unknown", func(f *fixture) {
			f.in.NewState = "Approved"
		}, domain.ErrInvalidInput},
		{"own loan", func(f *fixture) {
			own := f.store.addLoan(f.caller.UserID, domain.LoanPending, true)
			f.in.LoanID = own.ID
		}, domain.ErrUnauthorized},
		{"already decided", func(f *fixture) {
			f.store.loans[f.in.LoanID].State = domain.LoanAccepted
		}, domain.ErrInvalidState},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := baseline()
			tc.mutate(&f)
			before := loanStates(f.store)

			svc := newLoanService(f.store, nil, LoanOptions{})
			_, err := svc.ChangeState(context.Background(), f.caller, f.in)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			for id, state := range loanStates(f.store) {
				if before[id] != state {
					t.Fatalf("rejected decision changed loan %s from %s to %s", id, before[id], state)
				}
			}
		})
	}
}

func loanStates(s *memStore) map[uuid.UUID]domain.LoanState {
	out := make(map[uuid.UUID]domain.LoanState, len(s.loans))
	for id, l := range s.loans {
		out[id] = l.State
	}
	return out
}

func TestLoanService_ChangeState_Redecision(t *testing.T) {
	for _, allow := range []bool{false, true} {
		store := newMemStore()
		root := store.addUser("root", domain.RoleAdmin, true)
		alice := store.addUser("alice", domain.RoleUser, true)
		loan := store.addLoan(alice.ID, domain.LoanAccepted, true)
		svc := newLoanService(store, nil, LoanOptions{AllowRedecision: allow})

		_, err := svc.ChangeState(context.Background(), identityOf(root), ports.ChangeLoanStateInput{LoanID: loan.ID, NewState: domain.LoanRejected})
		if allow {
			if err != nil {
				t.Fatalf("redecision allowed: unexpected error %v", err)
			}
			if store.loans[loan.ID].State != domain.LoanRejected {
				t.Fatalf("redecision allowed: state not updated")
			}
			continue
		}
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("redecision disabled: expected ErrInvalidState, got %v", err)
		}
	}
}

func TestLoanService_ListMine(t *testing.T) {
	store := newMemStore()
	svc := newLoanService(store, nil, LoanOptions{})
	alice := store.addUser("alice", domain.RoleUser, true)
	bob := store.addUser("bob", domain.RoleUser, true)
	store.addLoan(alice.ID, domain.LoanPending, true)
	store.addLoan(alice.ID, domain.LoanAccepted, true)
	store.addLoan(alice.ID, domain.LoanPending, false)
	store.addLoan(bob.ID, domain.LoanPending, true)

	views, err := svc.ListMine(context.Background(), identityOf(alice))
	if err != nil {
		t.Fatalf("ListMine returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 active loans, got %d", len(views))
	}
	for _, v := range views {
		if v.UserID != alice.ID || !v.Active {
			t.Fatalf("unexpected loan in result: %+v", v)
		}
	}

	empty, err := svc.ListMine(context.Background(), domain.Identity{UserID: uuid.New()})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v / %v", empty, err)
	}
}

func TestLoanService_ListByUser(t *testing.T) {
	store := newMemStore()
	svc := newLoanService(store, nil, LoanOptions{})
	root := store.addUser("root", domain.RoleAdmin, true)
	alice := store.addUser("alice", domain.RoleUser, true)
	bob := store.addUser("bob", domain.RoleUser, true)
	store.addLoan(alice.ID, domain.LoanPending, true)

	if views, err := svc.ListByUser(context.Background(), identityOf(root), alice.ID); err != nil || len(views) != 1 {
		t.Fatalf("admin listing: got %v / %v", views, err)
	}
	if views, err := svc.ListByUser(context.Background(), identityOf(alice), alice.ID); err != nil || len(views) != 1 {
		t.Fatalf("own listing: got %v / %v", views, err)
	}
	if _, err := svc.ListByUser(context.Background(), identityOf(bob), alice.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ListByUser(context.Background(), identityOf(root), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoanService_PublishFailureKeepsCommit(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newLoanService(store, pub, LoanOptions{})
	alice := store.addUser("alice", domain.RoleUser, true)

	if _, err := svc.Create(context.Background(), identityOf(alice), ports.CreateLoanInput{Amount: "10", Term: "1 month"}); err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if len(store.loans) != 1 {
		t.Fatalf("loan should be committed")
	}
}

func TestLoanService_StoreFailure(t *testing.T) {
	store := newMemStore()
	alice := store.addUser("alice", domain.RoleUser, true)
	store.txErr = errors.New("connection reset")
	svc := newLoanService(store, nil, LoanOptions{})

	_, err := svc.Create(context.Background(), identityOf(alice), ports.CreateLoanInput{Amount: "10", Term: "1 month"})
	if err == nil || domain.IsDomainError(err) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

// alice requests a loan, root accepts it, alice sees the decision.
func TestLoanService_RequestAndDecide(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	auth := newAuthService(store)
	loans := newLoanService(store, pub, LoanOptions{})
	ctx := context.Background()

	if _, err := auth.EnsureAdmin(ctx, "root", "rootpass"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	rootAuth, err := auth.Login(ctx, ports.LoginInput{Username: "root", Password: "rootpass"})
	if err != nil {
		t.Fatalf("root login: %v", err)
	}
	aliceAuth, err := auth.Register(ctx, ports.RegisterInput{Username: "alice", Password: "secret1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	alice := domain.Identity{UserID: aliceAuth.UserID, Username: aliceAuth.Username, Role: aliceAuth.Role}
	root := domain.Identity{UserID: rootAuth.UserID, Username: rootAuth.Username, Role: rootAuth.Role}

	loan, err := loans.Create(ctx, alice, ports.CreateLoanInput{Amount: "5000.00", Term: "12 months"})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if _, err := loans.ChangeState(ctx, alice, ports.ChangeLoanStateInput{LoanID: loan.ID, NewState: domain.LoanAccepted}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("alice must not decide loans, got %v", err)
	}
	if _, err := loans.ChangeState(ctx, root, ports.ChangeLoanStateInput{LoanID: loan.ID, NewState: domain.LoanAccepted}); err != nil {
		t.Fatalf("root decision: %v", err)
	}

	mine, err := loans.ListMine(ctx, alice)
	if err != nil || len(mine) != 1 || mine[0].State != domain.LoanAccepted {
		t.Fatalf("alice should see one accepted loan, got %+v / %v", mine, err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
}
