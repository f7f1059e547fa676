package gormdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makers/loans-api/internal/core/domain"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(fromUser(u)).Error; err != nil {
		return translate(err, "create user")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id.String())
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return m.toDomain()
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	m := fromUser(u)
	res := r.db.WithContext(ctx).Model(m).Select("*").Omit("created_at", clause.Associations).Updates(m)
	if res.Error != nil {
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var ms []userModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&ms).Error; err != nil {
		return nil, translate(err, "list users")
	}
	out := make([]*domain.User, 0, len(ms))
	for i := range ms {
		u, err := ms[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// translate maps gorm errors onto domain kinds. The only unique constraint
// besides the primary keys is users.username.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.Reason(domain.ErrUsernameTaken, "username is already taken")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
