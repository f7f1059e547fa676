package ports

import "github.com/makers/loans-api/internal/core/domain"

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// TokenVerifier validates a bearer token and returns the identity it asserts.
type TokenVerifier interface {
	Parse(token string) (domain.Identity, error)
}
