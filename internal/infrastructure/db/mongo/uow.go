package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/makers/loans-api/internal/core/ports"
)

// UnitOfWork runs each use case inside a session transaction. Transactions
// need a replica set; with UseTransactions off the repositories write
// directly and nothing is rolled back.
type UnitOfWork struct {
	client          *mongo.Client
	db              *mongo.Database
	useTransactions bool
}

func NewUnitOfWork(client *mongo.Client, db *mongo.Database, useTransactions bool) *UnitOfWork {
	return &UnitOfWork{client: client, db: db, useTransactions: useTransactions}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(r ports.Repositories) error) error {
	if !u.useTransactions {
		return fn(repositories(u.db, nil))
	}

	sess, err := u.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(mongo.SessionContext) (interface{}, error) {
		return nil, fn(repositories(u.db, sess))
	})
	return err
}

func repositories(db *mongo.Database, sess mongo.Session) ports.Repositories {
	return ports.Repositories{
		Users: NewUserRepository(db, sess),
		Loans: NewLoanRepository(db, sess),
	}
}
