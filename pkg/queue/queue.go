// Package queue provides a bounded blocking FIFO used to hand events from
// producer goroutines to a single consumer. The gateway uses one queue per
// connection so outbound events are written in the order they were produced
// and slow readers exert backpressure instead of dropping events.
package queue

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDone is returned by Next after CloseWrite once the queue is drained.
var ErrDone = errors.New("queue: done")

// ErrClosed is the default error for a queue closed without a specific cause.
var ErrClosed = errors.New("queue: closed")

// Queue is a fixed-capacity FIFO. Add blocks when the queue is full, Next
// blocks when it is empty. Closing with an error unblocks both sides.
type Queue[T any] struct {
	cond *sync.Cond

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closeWrite bool
	closeErr   error
}

// New creates a queue with the given capacity.
func New[T any](size int) *Queue[T] {
	q := &Queue[T]{buf: make([]T, size)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add appends one element, blocking while the queue is full.
func (q *Queue[T]) Add(t T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closeErr != nil {
			return fmt.Errorf("queue: add to closed queue: %w", q.closeErr)
		}
		if q.closeWrite {
			return fmt.Errorf("queue: add to closed queue: %w", ErrClosed)
		}
		if q.tail-q.head < int64(len(q.buf)) {
			break
		}
		q.cond.Wait()
	}
	q.buf[q.tail%int64(len(q.buf))] = t
	q.tail++
	q.cond.Signal()
	return nil
}

// Next removes and returns the oldest element, blocking while the queue is
// empty. Returns ErrDone once the write side is closed and the queue drained.
func (q *Queue[T]) Next() (t T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == q.tail {
		if q.closeErr != nil {
			err = fmt.Errorf("queue: next from closed queue: %w", q.closeErr)
			return
		}
		if q.closeWrite {
			err = ErrDone
			return
		}
		q.cond.Wait()
	}
	t = q.buf[q.head%int64(len(q.buf))]
	q.head++
	q.cond.Signal()
	return t, nil
}

// CloseWrite stops further Adds while letting the consumer drain.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeWrite {
		return nil
	}
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// CloseWithError tears the queue down immediately. Pending and future Add and
// Next calls fail with the given error. A nil err defaults to ErrClosed.
func (q *Queue[T]) CloseWithError(err error) error {
	if err == nil {
		err = ErrClosed
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return nil
	}
	q.closeErr = err
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// Close is CloseWithError(ErrClosed).
func (q *Queue[T]) Close() error {
	return q.CloseWithError(ErrClosed)
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}
