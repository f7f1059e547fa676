package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/makers/loans-api/internal/core/domain"
)

type LoanRepository struct {
	coll *mongo.Collection
	sess mongo.Session
}

func NewLoanRepository(db *mongo.Database, sess mongo.Session) *LoanRepository {
	return &LoanRepository{coll: db.Collection(collectionLoans), sess: sess}
}

type mongoLoan struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Amount    string    `bson:"amount"`
	Term      string    `bson:"term"`
	State     string    `bson:"state"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	ctx, cancel := scoped(ctx, r.sess)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toMongoLoan(loan)); err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	ctx, cancel := scoped(ctx, r.sess)
	defer cancel()

	var ml mongoLoan
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&ml); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return ml.toDomain()
}

func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	ctx, cancel := scoped(ctx, r.sess)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": loan.ID.String()}, bson.M{"$set": bson.M{
		"amount":     loan.Amount,
		"term":       loan.Term,
		"state":      string(loan.State),
		"active":     loan.Active,
		"updated_at": loan.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	return r.find(ctx, bson.M{})
}

func (r *LoanRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	return r.find(ctx, bson.M{"user_id": userID.String(), "active": true})
}

func (r *LoanRepository) find(ctx context.Context, filter bson.M) ([]*domain.Loan, error) {
	ctx, cancel := scoped(ctx, r.sess)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find loans: %w", err)
	}
	var docs []mongoLoan
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode loans: %w", err)
	}

	out := make([]*domain.Loan, 0, len(docs))
	for i := range docs {
		l, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func toMongoLoan(l *domain.Loan) mongoLoan {
	return mongoLoan{
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

func (ml mongoLoan) toDomain() (*domain.Loan, error) {
	id, err := uuid.Parse(ml.ID)
	if err != nil {
		return nil, fmt.Errorf("loan id %q: %w", ml.ID, err)
	}
	userID, err := uuid.Parse(ml.UserID)
	if err != nil {
		return nil, fmt.Errorf("loan owner %q: %w", ml.UserID, err)
	}
	return &domain.Loan{
		ID:        id,
		UserID:    userID,
		Amount:    ml.Amount,
		Term:      ml.Term,
		State:     domain.LoanState(ml.State),
		Active:    ml.Active,
		CreatedAt: ml.CreatedAt.UTC(),
		UpdatedAt: ml.UpdatedAt.UTC(),
	}, nil
}
