package domain

import "errors"

// Failure kinds surfaced by the use cases. Callers match them with errors.Is;
// the human-readable message travels in the wrapping error built by Reason.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidState       = errors.New("invalid state")
)

var kinds = []error{
	ErrInvalidCredentials,
	ErrAccountInactive,
	ErrUsernameTaken,
	ErrNotFound,
	ErrUnauthorized,
	ErrInvalidInput,
	ErrInvalidState,
}

type reasonError struct {
	kind   error
	reason string
}

func (e *reasonError) Error() string { return e.reason }
func (e *reasonError) Unwrap() error { return e.kind }

// Reason returns an error that prints reason and matches kind under errors.Is.
func Reason(kind error, reason string) error {
	return &reasonError{kind: kind, reason: reason}
}

// IsDomainError reports whether err belongs to one of the business-rule kinds
// declared in this package.
func IsDomainError(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
