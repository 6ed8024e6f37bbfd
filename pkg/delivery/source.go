package delivery

import (
	"context"
	"io"
	"iter"
)

// Source produces the values for SendAll. Next returns io.EOF once the
// sequence is exhausted; any other error aborts the transfer and is returned
// to the SendAll caller unchanged.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// SourceFunc adapts a function to a Source
type SourceFunc[T any] func(ctx context.Context) (T, error)

// Next calls f(ctx)
func (f SourceFunc[T]) Next(ctx context.Context) (T, error) {
	return f(ctx)
}

type sliceSource[T any] struct {
	values []T
	pos    int
}

// FromSlice returns a Source over values in order
func FromSlice[T any](values ...T) Source[T] {
	return &sliceSource[T]{values: values}
}

func (s *sliceSource[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if s.pos >= len(s.values) {
		return zero, io.EOF
	}
	v := s.values[s.pos]
	s.pos++
	return v, nil
}

type chanSource[T any] struct {
	ch <-chan T
}

// FromChan returns a Source that receives from ch until it is closed. Waiting
// on an empty channel is interrupted by ctx, so an unbounded producer can
// still be cut off by SendAllBounded.
func FromChan[T any](ch <-chan T) Source[T] {
	return chanSource[T]{ch: ch}
}

func (s chanSource[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-s.ch:
		if !ok {
			return zero, io.EOF
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// FromSeq returns a Source pulling from seq, and a stop function that must be
// called to release seq once the caller is done with the Source. Producing a
// value inside seq is not interruptible; use FromChan for producers that may
// block.
func FromSeq[T any](seq iter.Seq[T]) (Source[T], func()) {
	next, stop := iter.Pull(seq)
	src := SourceFunc[T](func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, ok := next()
		if !ok {
			return zero, io.EOF
		}
		return v, nil
	})
	return src, stop
}
