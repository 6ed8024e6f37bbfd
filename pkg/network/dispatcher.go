package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ZentaChain/zentalk-wire/pkg/delivery"
	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

var (
	ErrNoHandler = errors.New("no handler for packet kind")
)

// HandlerFunc processes one decoded packet
type HandlerFunc func(ctx context.Context, pkt protocol.Packet) error

// DispatchStats is a snapshot of dispatcher counters
type DispatchStats struct {
	Received  uint64 `json:"received"`
	Handled   uint64 `json:"handled"`
	Dropped   uint64 `json:"dropped"`
	Unhandled uint64 `json:"unhandled"`
	Failed    uint64 `json:"failed"`
}

// Dispatcher decodes inbound frames and routes each packet to the handler
// registered for its kind. A malformed frame is dropped and reported; it never
// stops the dispatcher.
type Dispatcher struct {
	handlers map[protocol.Kind]HandlerFunc
	mu       sync.RWMutex

	received  atomic.Uint64
	handled   atomic.Uint64
	dropped   atomic.Uint64
	unhandled atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher creates a dispatcher with no handlers
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[protocol.Kind]HandlerFunc),
	}
}

// Handle registers h for kind, replacing any previous handler
func (d *Dispatcher) Handle(kind protocol.Kind, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[kind] = h
}

// Dispatch decodes a single frame and runs its handler. A frame carries
// exactly one packet; leftover bytes make it malformed.
func (d *Dispatcher) Dispatch(ctx context.Context, frame []byte) error {
	d.received.Add(1)

	pkt, n, err := protocol.Decode(frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("decode %s: %w: %d of %d bytes unread", pkt.Kind(), wire.ErrTrailingBytes, len(frame)-n, len(frame))
	}
	if err != nil {
		d.dropped.Add(1)
		return err
	}

	d.mu.RLock()
	h, exists := d.handlers[pkt.Kind()]
	d.mu.RUnlock()

	if !exists {
		d.unhandled.Add(1)
		return fmt.Errorf("%w: %s", ErrNoHandler, pkt.Kind())
	}

	if err := h(ctx, pkt); err != nil {
		d.failed.Add(1)
		return fmt.Errorf("handle %s from peer %d in group %d: %w", pkt.Kind(), pkt.GroupHeader().PeerNumber, pkt.GroupHeader().GroupNumber, err)
	}
	d.handled.Add(1)
	return nil
}

// Run dispatches frames from src until src is exhausted or ctx ends. Per-frame
// errors are logged and skipped; only a failure of src itself stops Run.
func (d *Dispatcher) Run(ctx context.Context, src delivery.Source[[]byte]) error {
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Println("Dispatch loop stopped: source drained")
			return nil
		}
		if err != nil {
			return err
		}

		if err := d.Dispatch(ctx, frame); err != nil {
			switch {
			case errors.Is(err, ErrNoHandler):
				log.Printf("Unhandled packet: %v", err)
			case errors.Is(err, wire.ErrWrongTag), errors.Is(err, wire.ErrTruncated),
				errors.Is(err, wire.ErrMalformed), errors.Is(err, wire.ErrTrailingBytes):
				log.Printf("⚠️  Dropping malformed frame (%d bytes): %v", len(frame), err)
			default:
				log.Printf("❌ Handler error: %v", err)
			}
		}
	}
}

// Stats returns the dispatcher counters
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Received:  d.received.Load(),
		Handled:   d.handled.Load(),
		Dropped:   d.dropped.Load(),
		Unhandled: d.unhandled.Load(),
		Failed:    d.failed.Load(),
	}
}
