package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

type memStore struct {
	users map[uuid.UUID]*domain.User
	loans map[uuid.UUID]*domain.Loan

	commits   int
	rollbacks int
	txErr     error // if set, WithinTx fails before calling fn
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]*domain.User),
		loans: make(map[uuid.UUID]*domain.Loan),
	}
}

// WithinTx runs fn against copies of the maps and swaps them in on success.
func (s *memStore) WithinTx(_ context.Context, fn func(r ports.Repositories) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	tx := &memTx{users: make(map[uuid.UUID]*domain.User), loans: make(map[uuid.UUID]*domain.Loan)}
	for k, v := range s.users {
		c := *v
		tx.users[k] = &c
	}
	for k, v := range s.loans {
		c := *v
		tx.loans[k] = &c
	}
	if err := fn(ports.Repositories{Users: (*memUsers)(tx), Loans: (*memLoans)(tx)}); err != nil {
		s.rollbacks++
		return err
	}
	s.users, s.loans = tx.users, tx.loans
	s.commits++
	return nil
}

func (s *memStore) addUser(username string, role domain.Role, active bool) *domain.User {
	u := domain.NewUser(username, "hashed:"+username+"-pass", role)
	u.Active = active
	c := *u
	s.users[u.ID] = &c
	return u
}

func (s *memStore) addLoan(owner uuid.UUID, state domain.LoanState, active bool) *domain.Loan {
	l := domain.NewLoan(owner, "1000.00", "12 months")
	l.State = state
	l.Active = active
	c := *l
	s.loans[l.ID] = &c
	return l
}

type memTx struct {
	users map[uuid.UUID]*domain.User
	loans map[uuid.UUID]*domain.Loan
}

type memUsers memTx

func (r *memUsers) Create(_ context.Context, u *domain.User) error {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
	}
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUsers) Update(_ context.Context, u *domain.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *memUsers) List(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

type memLoans memTx

func (r *memLoans) Create(_ context.Context, l *domain.Loan) error {
	if _, ok := r.users[l.UserID]; !ok {
		return errors.New("foreign key violation")
	}
	c := *l
	r.loans[l.ID] = &c
	return nil
}

func (r *memLoans) GetByID(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	l, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (r *memLoans) Update(_ context.Context, l *domain.Loan) error {
	if _, ok := r.loans[l.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *l
	r.loans[l.ID] = &c
	return nil
}

func (r *memLoans) List(_ context.Context) ([]*domain.Loan, error) {
	out := make([]*domain.Loan, 0, len(r.loans))
	for _, l := range r.loans {
		c := *l
		out = append(out, &c)
	}
	return out, nil
}

func (r *memLoans) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, l := range r.loans {
		if l.UserID == userID && l.Active {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type stubHasher struct{ err error }

func (h stubHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + p, nil
}

func (stubHasher) Verify(p, hash string) bool { return hash == "hashed:"+p }

type stubTokens struct{ err error }

func (t stubTokens) Issue(u *domain.User) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "token:" + u.ID.String() + ":" + string(u.Role), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LoanEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.LoanEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

var discardLogger = zerolog.Nop()

func identityOf(u *domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
