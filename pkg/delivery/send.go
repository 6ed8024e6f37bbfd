package delivery

import (
	"context"
	"errors"
	"io"
	"time"
)

// Send delivers v to dst. The caller keeps dst and may keep sending to it.
// A failure of dst is returned unchanged.
func Send[T any](ctx context.Context, dst Sink[T], v T) error {
	return dst.Send(ctx, v)
}

// SendBounded is Send with a time limit. It returns ErrTimedOut when timeout
// elapses before dst accepts v; v is then not delivered and the slot it
// waited for is released. Cancellation of ctx itself is reported as ctx's
// error, not as a timeout.
func SendBounded[T any](ctx context.Context, dst Sink[T], v T, timeout time.Duration) error {
	if timeout <= 0 {
		return ErrTimedOut
	}
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return boundedResult(ctx, bctx, Send(bctx, dst, v))
}

// SendAll delivers every value from src to dst in order. It stops at the first
// error from either side and returns it unchanged; values already delivered
// are not taken back.
func SendAll[T any](ctx context.Context, dst Sink[T], src Source[T]) error {
	for {
		v, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := dst.Send(ctx, v); err != nil {
			return err
		}
	}
}

// SendAllBounded is SendAll with one time limit for the whole transfer. When
// it elapses the remaining values are abandoned and ErrTimedOut is returned.
func SendAllBounded[T any](ctx context.Context, dst Sink[T], src Source[T], timeout time.Duration) error {
	if timeout <= 0 {
		return ErrTimedOut
	}
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return boundedResult(ctx, bctx, SendAll(bctx, dst, src))
}

// boundedResult turns an error caused by the bounded context's own deadline
// into ErrTimedOut and leaves every other outcome alone.
func boundedResult(parent, bounded context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() == nil && errors.Is(bounded.Err(), context.DeadlineExceeded) && errors.Is(err, context.DeadlineExceeded) {
		return ErrTimedOut
	}
	return err
}
