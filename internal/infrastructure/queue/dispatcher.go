package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/api/metrics"
	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

var (
	ErrQueueFull = errors.New("event queue is full")
	ErrStopped   = errors.New("event dispatcher is stopped")
)

// Dispatcher routes loan events to a fixed set of workers using consistent
// hashing on the loan id, guaranteeing per-loan event ordering. Each worker
// forwards its events to sink.
type Dispatcher struct {
	workers []chan domain.LoanEvent
	sink    ports.LoanEventPublisher
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.LoanEventPublisher, log zerolog.Logger) *Dispatcher {
	return newDispatcher(numWorkers, channelBuffer, sink, log)
}

func newDispatcher(numWorkers, buffer int, sink ports.LoanEventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LoanEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoanEvent, buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or after Stop has drained their queues.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop refuses new events and waits for the queued ones to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Publish enqueues event on the worker responsible for its loan. It never
// blocks: when that worker's queue is full the event is dropped.
func (d *Dispatcher) Publish(_ context.Context, event domain.LoanEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.LoanEventsErrorsTotal.WithLabelValues("stopped").Inc()
		return ErrStopped
	}

	idx := d.shardIndex(event.LoanID.String())
	select {
	case d.workers[idx] <- event:
		metrics.LoanEventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.LoanEventsErrorsTotal.WithLabelValues("queue_full").Inc()
		d.log.Warn().
			Str("loan_id", event.LoanID.String()).
			Str("type", event.Type).
			Int("worker_id", idx).
			Msg("event queue full, dropping event")
		return ErrQueueFull
	}
}

// shardIndex maps a loan id deterministically to a worker index.
func (d *Dispatcher) shardIndex(loanID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(loanID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LoanEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.LoanEventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, event domain.LoanEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.sink.Publish(ctx, event); err != nil {
		metrics.LoanEventsErrorsTotal.WithLabelValues("publish_failed").Inc()
		d.log.Error().Err(err).
			Str("loan_id", event.LoanID.String()).
			Str("type", event.Type).
			Int("worker_id", id).
			Msg("event publication failed")
		return
	}
	metrics.LoanEventsPublishedTotal.WithLabelValues(event.Type).Inc()
}
