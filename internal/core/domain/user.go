package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization tier of a user.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
	PasswordMinLen = 6
)

// ParseRole accepts the canonical role names, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "user":
		return RoleUser, true
	}
	return "", false
}

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User models an account able to authenticate and own loans.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser builds an active account. The password must already be hashed.
func NewUser(username, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Anonymous reports whether no authenticated caller is present.
func (i Identity) Anonymous() bool { return i.UserID == uuid.Nil }
