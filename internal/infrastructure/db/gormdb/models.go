package gormdb

import (
	"time"

	"github.com/google/uuid"

	"github.com/makers/loans-api/internal/core/domain"
)

type userModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:10;not null"`
	Active       bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	Loans []loanModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userModel) TableName() string { return "users" }

type loanModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	Amount    string    `gorm:"size:32;not null"` // domain.AmountMaxLen
	Term      string    `gorm:"size:50;not null"`
	State     string    `gorm:"size:10;not null;index"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (loanModel) TableName() string { return "loans" }

func fromUser(u *domain.User) *userModel {
	return &userModel{
		ID:           u.ID.String(),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m *userModel) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           id,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func fromLoan(l *domain.Loan) *loanModel {
	return &loanModel{
		ID:        l.ID.String(),
		UserID:    l.UserID.String(),
		Amount:    l.Amount,
		Term:      l.Term,
		State:     string(l.State),
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (m *loanModel) toDomain() (*domain.Loan, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Loan{
		ID:        id,
		UserID:    userID,
		Amount:    m.Amount,
		Term:      m.Term,
		State:     domain.LoanState(m.State),
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
