// Package queue decouples event ingestion from reconciliation with a
// bounded worker pool. Delivery is at least once: a failed event is
// re-enqueued with exponential backoff until it succeeds or runs out of
// attempts, so handlers must be idempotent.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/event"
)

// ErrClosed is returned by Enqueue after Close has begun.
var ErrClosed = errors.New("queue: closed")

// Handler processes one event. A nil return acknowledges the event; an
// error schedules a retry.
type Handler func(ctx context.Context, ev *event.CanonicalEvent) error

// Config tunes the pool. Zero values fall back to the defaults below.
type Config struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

type item struct {
	ev      *event.CanonicalEvent
	attempt int
}

// Queue is the worker pool.
type Queue struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	ch      chan *item
	pending sync.WaitGroup
	workers sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New builds a queue and starts its workers. Workers run until Close.
func New(ctx context.Context, cfg Config, handler Handler, logger *slog.Logger) *Queue {
	cfg = cfg.withDefaults()
	q := &Queue{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ch:      make(chan *item, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work(ctx)
	}
	return q
}

// Enqueue submits an event for processing. It blocks while the buffer is
// full and fails once the queue is closed.
func (q *Queue) Enqueue(ev *event.CanonicalEvent) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending.Add(1)
	q.mu.Unlock()

	q.ch <- &item{ev: ev, attempt: 1}
	return nil
}

// Close stops accepting events, waits for everything in flight (including
// scheduled retries) to finish, then stops the workers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.pending.Wait()
	close(q.ch)
	q.workers.Wait()
}

func (q *Queue) work(ctx context.Context) {
	defer q.workers.Done()
	for it := range q.ch {
		err := q.handler(ctx, it.ev)
		if err == nil {
			q.pending.Done()
			continue
		}
		if it.attempt >= q.cfg.MaxAttempts {
			q.logger.Error("event dropped after max attempts",
				"kind", it.ev.Kind,
				"transaction_id", it.ev.TransactionID,
				"attempts", it.attempt,
				"error", err,
			)
			q.pending.Done()
			continue
		}
		delay := q.backoff(it.attempt)
		q.logger.Warn("event processing failed, retrying",
			"kind", it.ev.Kind,
			"transaction_id", it.ev.TransactionID,
			"attempt", it.attempt,
			"backoff", delay,
			"error", err,
		)
		next := &item{ev: it.ev, attempt: it.attempt + 1}
		// The item stays pending until it terminally completes, so Close
		// cannot close the channel out from under this send.
		time.AfterFunc(delay, func() { q.ch <- next })
	}
}

func (q *Queue) backoff(attempt int) time.Duration {
	d := q.cfg.BaseBackoff << (attempt - 1)
	if d > q.cfg.MaxBackoff || d <= 0 {
		d = q.cfg.MaxBackoff
	}
	return d
}
