package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.LoanEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, e domain.LoanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestDispatcher_DeliversInOrderPerLoan(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(4, sink, zerolog.Nop())
	d.Start(context.Background())

	loans := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range loans {
		if err := d.Publish(context.Background(), domain.LoanEvent{Type: domain.EventLoanRequested, LoanID: id}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if err := d.Publish(context.Background(), domain.LoanEvent{Type: domain.EventLoanDecided, LoanID: id}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	d.Stop()

	if len(sink.events) != 6 {
		t.Fatalf("expected 6 delivered events, got %d", len(sink.events))
	}
	seen := map[uuid.UUID]string{}
	for _, e := range sink.events {
		if e.Type == domain.EventLoanDecided && seen[e.LoanID] != domain.EventLoanRequested {
			t.Fatalf("loan %s decided before requested", e.LoanID)
		}
		seen[e.LoanID] = e.Type
	}
}

func TestDispatcher_QueueFullDrops(t *testing.T) {
	d := newDispatcher(1, 1, &recordingSink{}, zerolog.Nop())

	if err := d.Publish(context.Background(), domain.LoanEvent{LoanID: uuid.New()}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := d.Publish(context.Background(), domain.LoanEvent{LoanID: uuid.New()}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_PublishAfterStop(t *testing.T) {
	d := NewDispatcher(2, &recordingSink{}, zerolog.Nop())
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	if err := d.Publish(context.Background(), domain.LoanEvent{LoanID: uuid.New()}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDispatcher_SinkFailureDoesNotStopWorker(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	d := NewDispatcher(1, sink, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 3; i++ {
		if err := d.Publish(context.Background(), domain.LoanEvent{LoanID: uuid.New()}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	d.Stop()
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, &recordingSink{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	id := uuid.NewString()
	if d.shardIndex(id) != d.shardIndex(id) {
		t.Fatalf("shard index must be deterministic")
	}
}
