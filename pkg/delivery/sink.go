package delivery

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	ErrClosed   = errors.New("delivery: destination closed")
	ErrTimedOut = errors.New("delivery: timed out")
)

// Sink accepts values one at a time. Send blocks while the sink applies
// backpressure and must return promptly once ctx is done, without having
// accepted v.
type Sink[T any] interface {
	Send(ctx context.Context, v T) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc[T any] func(ctx context.Context, v T) error

// Send calls f(ctx, v)
func (f SinkFunc[T]) Send(ctx context.Context, v T) error {
	return f(ctx, v)
}

// Queue is a bounded FIFO Sink over a buffered channel. Senders block while
// the queue is full; Close wakes every blocked sender with ErrClosed.
type Queue[T any] struct {
	items     chan T
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue holding up to capacity values. A capacity of zero
// makes every Send wait for a matching Recv.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
}

// Send enqueues v. It fails with ErrClosed once the queue is closed and with
// ctx.Err() when ctx ends first.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	// Checked up front so an expired ctx or a closed queue never races a free slot
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.items <- v:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv dequeues the oldest value. After Close it keeps returning buffered
// values until the queue is empty, then ErrClosed.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	select {
	case v := <-q.items:
		return v, nil
	default:
	}

	var zero T
	select {
	case v := <-q.items:
		return v, nil
	case <-q.done:
		// A sender may have won the race against Close
		select {
		case v := <-q.items:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryRecv dequeues a value without blocking
func (q *Queue[T]) TryRecv() (T, bool) {
	select {
	case v := <-q.items:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Next implements Source, so a queue can feed SendAll or a dispatcher. A
// closed and drained queue ends the sequence with io.EOF.
func (q *Queue[T]) Next(ctx context.Context) (T, error) {
	v, err := q.Recv(ctx)
	if errors.Is(err, ErrClosed) {
		return v, io.EOF
	}
	return v, err
}

// Len returns the number of buffered values
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}

// Close stops the queue from accepting values. It is safe to call more than
// once and concurrently with Send.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Done returns a channel closed by Close
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}
