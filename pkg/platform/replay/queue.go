// Package replay buffers durable writes that failed so a background worker
// can retry them. Nothing is dropped: a full queue refuses new work and the
// caller reports that to its own caller.
package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultCapacity = 1024
	defaultInterval = 5 * time.Second
)

// Op is one pending write.
type Op struct {
	Name     string
	Attempts int
	Do       func(ctx context.Context) error
}

// Queue is a bounded FIFO of pending writes.
type Queue struct {
	capacity int
	interval time.Duration
	logger   *slog.Logger

	flushMu sync.Mutex
	mu      sync.Mutex
	ops     []Op
}

type Option func(*Queue)

func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{
		capacity: defaultCapacity,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue returns false when the queue is full.
func (q *Queue) Enqueue(op Op) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) >= q.capacity {
		return false
	}
	q.ops = append(q.ops, op)
	return true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Flush replays ops strictly from the head and stops at the first failure,
// so no op ever runs ahead of one queued before it. An op stays queued while
// it runs, which keeps Len above zero for writers checking for a backlog.
func (q *Queue) Flush(ctx context.Context) (replayed int) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	for ctx.Err() == nil {
		q.mu.Lock()
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return replayed
		}
		q.ops[0].Attempts++
		op := q.ops[0]
		q.mu.Unlock()

		if err := op.Do(ctx); err != nil {
			if q.logger != nil {
				q.logger.WarnContext(ctx, "replay attempt failed",
					"op", op.Name,
					"attempts", op.Attempts,
					"backlog", q.Len(),
					"error", err,
				)
			}
			return replayed
		}

		// Only Flush removes ops and flushMu is held, so the head is still op.
		q.mu.Lock()
		q.ops[0] = Op{}
		q.ops = q.ops[1:]
		q.mu.Unlock()
		replayed++
	}
	return replayed
}

// Run flushes on every tick until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := q.Flush(ctx); n > 0 && q.logger != nil {
				q.logger.InfoContext(ctx, "replayed pending writes", "count", n, "remaining", q.Len())
			}
		}
	}
}
