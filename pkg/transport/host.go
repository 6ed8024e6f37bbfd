// Package transport carries encoded conference frames between peers over
// libp2p streams
package transport

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-libp2p"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	p2pprotocol "github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"

	"github.com/ZentaChain/zentalk-wire/pkg/delivery"
	"github.com/ZentaChain/zentalk-wire/pkg/storage"
)

const (
	// Protocol ID for conference frame streams
	ProtocolID = p2pprotocol.ID("/zentalk/conference/1.0.0")
)

// Config contains configuration for creating a Host
type Config struct {
	Port           int
	ListenAddrs    []string          // Overrides Port when set
	PrivateKey     p2pcrypto.PrivKey // Optional: provide your own identity
	InboundQueue   int               // Frames buffered for the dispatcher
	InboundTimeout time.Duration     // Wait for queue room before dropping a frame
	EnableNAT      bool
	Capture        *storage.CaptureStore // Optional: record every frame sent and received
}

// DefaultConfig returns default host settings
func DefaultConfig() *Config {
	return &Config{
		Port:           0,
		InboundQueue:   256,
		InboundTimeout: 5 * time.Second,
	}
}

// Stats is a snapshot of transport counters
type Stats struct {
	FramesIn   uint64 `json:"frames_in"`
	FramesOut  uint64 `json:"frames_out"`
	Dropped    uint64 `json:"dropped"`
	StreamsIn  uint64 `json:"streams_in"`
	StreamsOut uint64 `json:"streams_out"`
}

// Host is a libp2p host speaking the conference frame protocol. Frames read
// from any inbound stream land in one queue, drained by a dispatcher.
type Host struct {
	host    host.Host
	config  *Config
	inbound *delivery.Queue[[]byte]
	ctx     context.Context
	cancel  context.CancelFunc

	framesIn   atomic.Uint64
	framesOut  atomic.Uint64
	dropped    atomic.Uint64
	streamsIn  atomic.Uint64
	streamsOut atomic.Uint64
}

// NewHost creates a libp2p host and starts accepting conference streams
func NewHost(ctx context.Context, config *Config) (*Host, error) {
	if config == nil {
		config = DefaultConfig()
	}

	priv := config.PrivateKey
	if priv == nil {
		var err error
		priv, _, err = p2pcrypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key pair: %w", err)
		}
	}

	listenAddrs := config.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", config.Port)}
	}

	opts := []libp2p.Option{
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(listenAddrs...),
		libp2p.DefaultTransports,
		libp2p.DefaultMuxers,
		libp2p.DefaultSecurity,
	}
	if config.EnableNAT {
		opts = append(opts, libp2p.NATPortMap(), libp2p.EnableNATService())
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	hostCtx, cancel := context.WithCancel(ctx)
	t := &Host{
		host:    h,
		config:  config,
		inbound: delivery.NewQueue[[]byte](config.InboundQueue),
		ctx:     hostCtx,
		cancel:  cancel,
	}

	h.SetStreamHandler(ProtocolID, t.handleStream)

	return t, nil
}

// ID returns the host's peer ID
func (t *Host) ID() peer.ID {
	return t.host.ID()
}

// Addresses returns dialable addresses including the /p2p/ component
func (t *Host) Addresses() []multiaddr.Multiaddr {
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{
		ID:    t.host.ID(),
		Addrs: t.host.Addrs(),
	})
	if err != nil {
		return nil
	}
	return addrs
}

// Connect dials a peer given its full multiaddr (with /p2p/ component)
func (t *Host) Connect(ctx context.Context, addr string) (peer.ID, error) {
	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid peer address %s: %w", addr, err)
	}

	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return "", fmt.Errorf("failed to parse peer info from %s: %w", addr, err)
	}

	if err := t.ConnectPeer(ctx, *info); err != nil {
		return "", err
	}
	return info.ID, nil
}

// ConnectPeer dials a peer found through discovery
func (t *Host) ConnectPeer(ctx context.Context, info peer.AddrInfo) error {
	if err := t.host.Connect(ctx, info); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", info.ID, err)
	}

	log.Printf("🔗 Connected to peer %s", info.ID.ShortString())
	return nil
}

// Inbound returns the queue of frames received from all peers
func (t *Host) Inbound() *delivery.Queue[[]byte] {
	return t.inbound
}

// Pump opens a conference stream to remote and writes every frame src yields
// until src is exhausted. The stream is closed on success and reset on failure.
func (t *Host) Pump(ctx context.Context, remote peer.ID, src delivery.Source[[]byte]) error {
	stream, err := t.host.NewStream(ctx, remote, ProtocolID)
	if err != nil {
		return fmt.Errorf("failed to open stream to %s: %w", remote.ShortString(), err)
	}
	t.streamsOut.Add(1)

	out := streamSink{stream: stream}
	dst := delivery.SinkFunc[[]byte](func(ctx context.Context, frame []byte) error {
		if err := out.Send(ctx, frame); err != nil {
			return err
		}
		t.framesOut.Add(1)
		t.capture(ctx, storage.DirectionOutbound, remote, frame)
		return nil
	})

	if err := delivery.SendAll[[]byte](ctx, dst, src); err != nil {
		stream.Reset()
		return fmt.Errorf("pump to %s: %w", remote.ShortString(), err)
	}
	return stream.Close()
}

// handleStream reads frames from one inbound stream into the shared queue
func (t *Host) handleStream(stream network.Stream) {
	defer stream.Close()

	remote := stream.Conn().RemotePeer()
	t.streamsIn.Add(1)

	for {
		frame, err := ReadFrame(stream)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("⚠️  Stream from %s ended: %v", remote.ShortString(), err)
				stream.Reset()
			}
			return
		}
		t.framesIn.Add(1)
		t.capture(t.ctx, storage.DirectionInbound, remote, frame)

		err = delivery.SendBounded[[]byte](t.ctx, t.inbound, frame, t.config.InboundTimeout)
		switch {
		case err == nil:
		case errors.Is(err, delivery.ErrTimedOut):
			t.dropped.Add(1)
			log.Printf("⏱️  Inbound queue full, dropped frame from %s", remote.ShortString())
		default:
			stream.Reset()
			return
		}
	}
}

func (t *Host) capture(ctx context.Context, dir storage.Direction, remote peer.ID, frame []byte) {
	if t.config.Capture == nil {
		return
	}
	if _, err := t.config.Capture.Record(ctx, dir, remote.String(), frame); err != nil {
		log.Printf("Failed to capture frame: %v", err)
	}
}

// Stats returns the transport counters
func (t *Host) Stats() Stats {
	return Stats{
		FramesIn:   t.framesIn.Load(),
		FramesOut:  t.framesOut.Load(),
		Dropped:    t.dropped.Load(),
		StreamsIn:  t.streamsIn.Load(),
		StreamsOut: t.streamsOut.Load(),
	}
}

// PeerCount returns the number of connected peers
func (t *Host) PeerCount() int {
	return len(t.host.Network().Peers())
}

// Close stops accepting frames and shuts the host down. Frames already queued
// can still be drained from Inbound.
func (t *Host) Close() error {
	t.cancel()
	t.host.RemoveStreamHandler(ProtocolID)
	t.inbound.Close()
	return t.host.Close()
}
