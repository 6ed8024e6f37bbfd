// Package delivery pushes values into destinations with optional time bounds.
//
// A destination is a Sink: anything that accepts one value at a time and may
// block while it is full. Queue is the in-process Sink used between a
// protocol handler and the goroutine that owns a peer connection.
//
// The four primitives share one set of rules:
//   - Send and SendAll return the sink's own error unchanged.
//   - SendBounded and SendAllBounded return ErrTimedOut when their deadline
//     passes first, so a slow consumer can be told apart from a gone one.
//   - SendAll delivers in source order and stops at the first failure.
//     Values delivered before the failure stay delivered.
//   - A deadline on SendAllBounded covers the whole transfer, not each value.
//
// Sinks are shared by reference. Any number of goroutines may call Send on
// the same Sink; the sink's own admission order decides interleaving between
// them.
package delivery
