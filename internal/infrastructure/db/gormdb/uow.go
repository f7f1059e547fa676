package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/makers/loans-api/internal/core/ports"
)

// UnitOfWork binds both repositories to a single gorm transaction.
type UnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) *UnitOfWork { return &UnitOfWork{db: db} }

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(r ports.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.Repositories{
			Users: NewUserRepository(tx),
			Loans: NewLoanRepository(tx),
		})
	})
}
