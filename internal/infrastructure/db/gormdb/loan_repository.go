package gormdb

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makers/loans-api/internal/core/domain"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *domain.Loan) error {
	if err := r.db.WithContext(ctx).Create(fromLoan(l)).Error; err != nil {
		return translate(err, "create loan")
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	var m loanModel
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error; err != nil {
		return nil, translate(err, "get loan")
	}
	return m.toDomain()
}

func (r *LoanRepository) Update(ctx context.Context, l *domain.Loan) error {
	m := fromLoan(l)
	res := r.db.WithContext(ctx).Model(m).Select("*").Omit("created_at", clause.Associations).Updates(m)
	if res.Error != nil {
		return translate(res.Error, "update loan")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *LoanRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ? AND active = ?", userID.String(), true))
}

func (r *LoanRepository) find(q *gorm.DB) ([]*domain.Loan, error) {
	var ms []loanModel
	if err := q.Order("created_at ASC, id ASC").Find(&ms).Error; err != nil {
		return nil, translate(err, "list loans")
	}
	out := make([]*domain.Loan, 0, len(ms))
	for i := range ms {
		l, err := ms[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
