package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	uow    ports.UnitOfWork
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(uow ports.UnitOfWork, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{uow: uow, hasher: hasher, tokens: tokens, log: log}
}

// Login verifies the credentials and issues a token. An unknown username and
// a wrong password fail with the same error.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var user *domain.User
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		u, err := r.Users.GetByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Str("username", in.Username).Msg("login rejected: unknown username")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !user.Active {
		s.log.Warn().Str("user_id", user.ID.String()).Msg("login rejected: account inactive")
		return nil, domain.ErrAccountInactive
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.log.Warn().Str("user_id", user.ID.String()).Msg("login rejected: wrong password")
		return nil, domain.ErrInvalidCredentials
	}

	return s.authResult(user)
}

// Register creates an account and logs it in. Only an existing, active
// administrator may create another administrator.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	var created *domain.User
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		if in.Role == domain.RoleAdmin {
			if err := authorizeAdminCreation(ctx, r.Users, in.Caller); err != nil {
				return err
			}
		}

		_, err := r.Users.GetByUsername(ctx, in.Username)
		switch {
		case err == nil:
			return domain.Reason(domain.ErrUsernameTaken, "username is already taken")
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user := domain.NewUser(in.Username, hash, in.Role)
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		if domain.IsDomainError(err) {
			s.log.Warn().Err(err).Str("username", in.Username).Str("role", string(in.Role)).Msg("registration rejected")
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().
		Str("user_id", created.ID.String()).
		Str("role", string(created.Role)).
		Msg("user registered")

	return s.authResult(created)
}

// EnsureAdmin seeds an administrator account when username is free. It is
// the only path that creates an Admin without an authenticated Admin caller
// and is meant for process bootstrap.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	in := ports.RegisterInput{Username: username, Password: password, Role: domain.RoleAdmin}
	if err := validateRegistration(in); err != nil {
		return false, err
	}

	created := false
	err := s.uow.WithinTx(ctx, func(r ports.Repositories) error {
		_, err := r.Users.GetByUsername(ctx, username)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := r.Users.Create(ctx, domain.NewUser(username, hash, domain.RoleAdmin)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		s.log.Info().Str("username", username).Msg("bootstrap administrator created")
	}
	return created, nil
}

func (s *AuthService) authResult(user *domain.User) (*ports.AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

func validateRegistration(in ports.RegisterInput) error {
	n := utf8.RuneCountInString(in.Username)
	switch {
	case strings.TrimSpace(in.Username) == "":
		return domain.Reason(domain.ErrInvalidInput, "username is required")
	case n < domain.UsernameMinLen:
		return domain.Reason(domain.ErrInvalidInput, fmt.Sprintf("username must be at least %d characters", domain.UsernameMinLen))
	case n > domain.UsernameMaxLen:
		return domain.Reason(domain.ErrInvalidInput, fmt.Sprintf("username cannot exceed %d characters", domain.UsernameMaxLen))
	case in.Password == "":
		return domain.Reason(domain.ErrInvalidInput, "password is required")
	case utf8.RuneCountInString(in.Password) < domain.PasswordMinLen:
		return domain.Reason(domain.ErrInvalidInput, fmt.Sprintf("password must be at least %d characters", domain.PasswordMinLen))
	case !in.Role.Valid():
		return domain.Reason(domain.ErrInvalidInput, "role must be Admin or User")
	}
	return nil
}

func authorizeAdminCreation(ctx context.Context, users ports.UserRepository, caller domain.Identity) error {
	if caller.Anonymous() {
		return domain.Reason(domain.ErrUnauthorized, "authentication is required to register an administrator")
	}

	registrar, err := users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reason(domain.ErrUnauthorized, "registering user not found")
		}
		return err
	}
	if !registrar.IsAdmin() {
		return domain.Reason(domain.ErrUnauthorized, "only administrators can register other administrators")
	}
	if !registrar.Active {
		return domain.Reason(domain.ErrUnauthorized, "administrator account is not active")
	}
	return nil
}
