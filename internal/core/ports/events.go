package ports

import (
	"context"

	"github.com/makers/loans-api/internal/core/domain"
)

// LoanEventPublisher delivers committed loan changes to interested parties.
type LoanEventPublisher interface {
	Publish(ctx context.Context, event domain.LoanEvent) error
}
