// Package queue provides a generic, concurrency-safe bounded queue with
// blocking semantics for backpressure propagation.
//
// Unlike a drop-on-overflow buffer, a full queue makes Put block until a
// consumer catches up or the context is cancelled. This is the only shared
// structure between a receiver's framing loop and the decode pipeline, and
// the property the ingestion path relies on: a slow sink suspends socket
// reads instead of dropping frames or growing memory without bound.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/c360/rsvpstream/errors"
)

// Queue is a bounded FIFO queue of items of type T.
// All methods are safe for concurrent use.
type Queue[T any] struct {
	ch        chan T
	closeOnce sync.Once
	closed    chan struct{}

	// Statistics (always collected for observability)
	enqueued atomic.Int64
	dequeued atomic.Int64
}

// New creates a bounded queue with the given capacity.
// Capacity below 1 is raised to 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Put appends an item, blocking while the queue is full.
// Returns ctx.Err() on cancellation and ErrQueueClosed after Close.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	// Fast-path close check so a Put racing Close fails deterministically
	select {
	case <-q.closed:
		return errors.ErrQueueClosed
	default:
	}

	select {
	case q.ch <- item:
		q.enqueued.Add(1)
		return nil
	case <-q.closed:
		return errors.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get removes and returns the oldest item, blocking while the queue is empty.
// Items buffered before Close remain retrievable; once drained, Get returns
// ErrQueueClosed.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T

	select {
	case item := <-q.ch:
		q.dequeued.Add(1)
		return item, nil
	default:
	}

	select {
	case item := <-q.ch:
		q.dequeued.Add(1)
		return item, nil
	case <-q.closed:
		// Drain anything that slipped in before close
		select {
		case item := <-q.ch:
			q.dequeued.Add(1)
			return item, nil
		default:
			return zero, errors.ErrQueueClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryGet removes and returns the oldest item without blocking.
// The second return is false when the queue is empty.
func (q *Queue[T]) TryGet() (T, bool) {
	select {
	case item := <-q.ch:
		q.dequeued.Add(1)
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the current number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Stats returns the counts of items enqueued and dequeued so far.
func (q *Queue[T]) Stats() (enqueued, dequeued int64) {
	return q.enqueued.Load(), q.dequeued.Load()
}

// Close marks the queue closed. Blocked Puts fail immediately; buffered
// items remain available to Get/TryGet. Safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}
