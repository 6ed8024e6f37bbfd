package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
	"github.com/ZentaChain/zentalk-wire/pkg/delivery"
	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
)

// PeerConfig holds per-peer delivery settings
type PeerConfig struct {
	QueueSize    int           // Outbound frames buffered before senders block
	SendTimeout  time.Duration // Limit for a single packet
	BurstTimeout time.Duration // Limit for a whole SendPackets call
}

// DefaultPeerConfig returns default peer settings
func DefaultPeerConfig() *PeerConfig {
	return &PeerConfig{
		QueueSize:    64,
		SendTimeout:  2 * time.Second,
		BurstTimeout: 10 * time.Second,
	}
}

// PeerStats is a snapshot of a peer's delivery counters
type PeerStats struct {
	Sent     uint64 `json:"sent"`
	TimedOut uint64 `json:"timed_out"`
	Failed   uint64 `json:"failed"`
	Queued   int    `json:"queued"`
}

// Peer is the outbound side of one conference peer connection. Protocol
// handlers encode packets into the peer's outbox; the goroutine that owns the
// transport drains it through Outbound.
type Peer struct {
	PublicKey crypto.PublicKey

	outbox *delivery.Queue[[]byte]
	config *PeerConfig

	sent     atomic.Uint64
	timedOut atomic.Uint64
	failed   atomic.Uint64
}

// NewPeer creates a peer with an empty outbox
func NewPeer(publicKey crypto.PublicKey, config *PeerConfig) *Peer {
	if config == nil {
		config = DefaultPeerConfig()
	}
	return &Peer{
		PublicKey: publicKey,
		outbox:    delivery.NewQueue[[]byte](config.QueueSize),
		config:    config,
	}
}

// Outbound returns the outbox. The transport reads encoded frames from it.
func (p *Peer) Outbound() *delivery.Queue[[]byte] {
	return p.outbox
}

// SendPacket encodes pkt and queues it, waiting at most SendTimeout for room.
func (p *Peer) SendPacket(ctx context.Context, pkt protocol.Packet) error {
	frame, err := protocol.Encode(pkt)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("encode %s: %w", pkt.Kind(), err)
	}

	err = delivery.SendBounded[[]byte](ctx, p.outbox, frame, p.config.SendTimeout)
	p.record(err, 1)
	if errors.Is(err, delivery.ErrTimedOut) {
		log.Printf("⏱️  %s to peer %s timed out after %v", pkt.Kind(), p.PublicKey.Short(), p.config.SendTimeout)
	}
	return err
}

// SendPackets queues pkts in order under a single BurstTimeout. Packets are
// encoded one at a time as the outbox accepts them; an encode failure stops
// the burst. Packets queued before a failure stay queued.
func (p *Peer) SendPackets(ctx context.Context, pkts []protocol.Packet) error {
	next := 0
	src := delivery.SourceFunc[[]byte](func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if next >= len(pkts) {
			return nil, io.EOF
		}
		pkt := pkts[next]
		frame, err := protocol.Encode(pkt)
		if err != nil {
			return nil, fmt.Errorf("encode %s at %d: %w", pkt.Kind(), next, err)
		}
		next++
		return frame, nil
	})

	var delivered uint64
	dst := delivery.SinkFunc[[]byte](func(ctx context.Context, frame []byte) error {
		if err := p.outbox.Send(ctx, frame); err != nil {
			return err
		}
		delivered++
		return nil
	})

	err := delivery.SendAllBounded[[]byte](ctx, dst, src, p.config.BurstTimeout)
	p.sent.Add(delivered)
	if err != nil {
		p.record(err, 0)
		log.Printf("⚠️  Burst to peer %s stopped after %d/%d packets: %v",
			p.PublicKey.Short(), delivered, len(pkts), err)
	}
	return err
}

func (p *Peer) record(err error, sent uint64) {
	switch {
	case err == nil:
		p.sent.Add(sent)
	case errors.Is(err, delivery.ErrTimedOut):
		p.timedOut.Add(1)
	default:
		p.failed.Add(1)
	}
}

// Stats returns the peer's delivery counters
func (p *Peer) Stats() PeerStats {
	return PeerStats{
		Sent:     p.sent.Load(),
		TimedOut: p.timedOut.Load(),
		Failed:   p.failed.Load(),
		Queued:   p.outbox.Len(),
	}
}

// Close stops the outbox. Frames already queued can still be drained.
func (p *Peer) Close() {
	p.outbox.Close()
}
