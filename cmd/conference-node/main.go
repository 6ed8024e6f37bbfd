package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
	"github.com/ZentaChain/zentalk-wire/pkg/network"
	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
	"github.com/ZentaChain/zentalk-wire/pkg/storage"
	"github.com/ZentaChain/zentalk-wire/pkg/transport"
)

const (
	defaultKeyPath    = "./keys/conference.key"
	heartbeatInterval = time.Minute
)

var (
	port        = flag.Int("port", 9100, "libp2p port to listen on")
	keyPath     = flag.String("key", defaultKeyPath, "Path to the conference secret key")
	generateKey = flag.Bool("genkey", false, "Generate a new conference key")
	captureDB   = flag.String("capture", "", "SQLite file recording every frame (disabled when empty)")
	captureTTL  = flag.Duration("capture-ttl", 24*time.Hour, "How long captured frames are kept")
	connectAddr = flag.String("connect", "", "Peer multiaddr to connect to (with /p2p/ component)")
	group       = flag.Uint("group", 0, "Conference number used for outgoing packets")
	peerNumber  = flag.Uint("peer-number", 0, "Our peer number in the conference")
	nickname    = flag.String("name", "", "Announce this name after connecting")
	say         = flag.String("say", "", "Send this message after connecting")
	enableNAT   = flag.Bool("nat", false, "Enable NAT port mapping")
	conference  = flag.String("conference", "", "Conference ID (hex) to advertise and look up on the DHT")
	bootstrap   = flag.String("bootstrap", "", "Comma separated DHT bootstrap multiaddrs")
)

func main() {
	flag.Parse()

	printBanner()

	secretKey, err := loadOrGenerateKey(*keyPath, *generateKey)
	if err != nil {
		log.Fatalf("Failed to load/generate key: %v", err)
	}
	publicKey, err := crypto.PublicKeyFromSecret(secretKey)
	if err != nil {
		log.Fatalf("Failed to derive public key: %v", err)
	}
	log.Printf("✓ Conference key %s", publicKey.Short())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var capture *storage.CaptureStore
	if *captureDB != "" {
		if err := os.MkdirAll(filepath.Dir(*captureDB), 0755); err != nil {
			log.Fatalf("Failed to create capture directory: %v", err)
		}
		capture, err = storage.NewCaptureStore(*captureDB, *captureTTL)
		if err != nil {
			log.Fatalf("Failed to open capture store: %v", err)
		}
		log.Printf("📼 Capturing frames to %s (TTL: %v)", *captureDB, *captureTTL)
	}

	config := transport.DefaultConfig()
	config.Port = *port
	config.EnableNAT = *enableNAT
	config.Capture = capture

	host, err := transport.NewHost(ctx, config)
	if err != nil {
		log.Fatalf("Failed to start host: %v", err)
	}
	log.Printf("✓ Listening as %s", host.ID())
	for _, addr := range host.Addresses() {
		log.Printf("   %s", addr)
	}

	dispatcher := newLoggingDispatcher()
	go func() {
		if err := dispatcher.Run(ctx, host.Inbound()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Dispatch loop stopped: %v", err)
		}
	}()

	if *connectAddr != "" {
		go func() {
			remote, err := host.Connect(ctx, *connectAddr)
			if err != nil {
				log.Printf("❌ %v", err)
				return
			}
			talk(ctx, host, remote, publicKey)
		}()
	}

	if *conference != "" {
		conferenceID, err := crypto.ParsePublicKey(*conference)
		if err != nil {
			log.Fatalf("Invalid conference ID: %v", err)
		}
		var bootstrapPeers []string
		if *bootstrap != "" {
			bootstrapPeers = strings.Split(*bootstrap, ",")
		}
		disc, err := transport.NewDiscovery(ctx, host, bootstrapPeers)
		if err != nil {
			log.Fatalf("Failed to start discovery: %v", err)
		}
		defer disc.Close()
		go discoverMembers(ctx, host, disc, conferenceID, publicKey)
	}

	go startHeartbeatLoop(ctx, host, dispatcher, capture)

	waitForShutdown(cancel, host, capture)
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Println("║          Zentalk Conference Node v1.0            ║")
	fmt.Println("║     Group chat frames over libp2p streams        ║")
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
}

func loadOrGenerateKey(keyPath string, generate bool) (crypto.SecretKey, error) {
	if _, err := os.Stat(keyPath); err == nil && !generate {
		log.Println("Loading existing conference key...")
		return crypto.LoadSecretKey(keyPath)
	}

	log.Println("Generating new conference key pair...")
	_, secretKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return crypto.SecretKey{}, err
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return crypto.SecretKey{}, err
	}
	if err := crypto.SaveSecretKey(keyPath, secretKey); err != nil {
		return crypto.SecretKey{}, err
	}

	log.Printf("✓ New key saved to %s", keyPath)
	return secretKey, nil
}

// newLoggingDispatcher logs every conference packet kind it receives
func newLoggingDispatcher() *network.Dispatcher {
	d := network.NewDispatcher()

	d.Handle(protocol.KindPing, func(ctx context.Context, pkt protocol.Packet) error {
		h := pkt.GroupHeader()
		log.Printf("🏓 Ping from peer %d in group %d", h.PeerNumber, h.GroupNumber)
		return nil
	})
	d.Handle(protocol.KindNewPeer, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.NewPeer)
		log.Printf("👋 Peer %d joined group %d (key %s)", p.NewPeerNumber, p.GroupNumber, p.LongTermPK.Short())
		return nil
	})
	d.Handle(protocol.KindKillPeer, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.KillPeer)
		log.Printf("🚪 Peer %d left group %d", p.KillPeerNumber, p.GroupNumber)
		return nil
	})
	d.Handle(protocol.KindFreezePeer, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.FreezePeer)
		log.Printf("🧊 Peer %d frozen in group %d", p.FrozenPeerNumber, p.GroupNumber)
		return nil
	})
	d.Handle(protocol.KindChangeName, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.ChangeName)
		log.Printf("📛 Peer %d is now %q", p.PeerNumber, p.Name)
		return nil
	})
	d.Handle(protocol.KindChangeTitle, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.ChangeTitle)
		log.Printf("📝 Group %d title: %q", p.GroupNumber, p.Title)
		return nil
	})
	d.Handle(protocol.KindMessage, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.Message)
		log.Printf("💬 [%d/%d #%d] %s", p.GroupNumber, p.PeerNumber, p.MessageNumber, p.Text)
		return nil
	})
	d.Handle(protocol.KindAction, func(ctx context.Context, pkt protocol.Packet) error {
		p := pkt.(*protocol.Action)
		log.Printf("✨ [%d/%d] * %s", p.GroupNumber, p.PeerNumber, p.Text)
		return nil
	})

	return d
}

// discoverMembers advertises the conference and talks to every member it finds
func discoverMembers(ctx context.Context, host *transport.Host, disc *transport.Discovery, conferenceID, publicKey crypto.PublicKey) {
	talking := make(map[libp2ppeer.ID]bool)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		if err := disc.Advertise(ctx, conferenceID); err != nil {
			log.Printf("⚠️  %v", err)
		}

		members, err := disc.FindMembers(ctx, conferenceID, 20)
		if err != nil {
			log.Printf("⚠️  %v", err)
		}
		for _, member := range members {
			if talking[member.ID] {
				continue
			}
			if err := host.ConnectPeer(ctx, member); err != nil {
				log.Printf("⚠️  %v", err)
				continue
			}
			talking[member.ID] = true
			go talk(ctx, host, member.ID, publicKey)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// talk announces us to remote and sends the optional name and message, then
// keeps the stream alive with pings
func talk(ctx context.Context, host *transport.Host, remote libp2ppeer.ID, publicKey crypto.PublicKey) {
	peer := network.NewPeer(publicKey, nil)
	go func() {
		if err := host.Pump(ctx, remote, peer.Outbound()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("❌ %v", err)
		}
	}()

	groupNumber, ourNumber := uint16(*group), uint16(*peerNumber)
	var messageNumber uint32
	next := func() uint32 {
		messageNumber++
		return messageNumber
	}

	pkts := []protocol.Packet{
		protocol.NewPeerMessage(groupNumber, ourNumber, next(), ourNumber, publicKey, publicKey),
	}
	if *nickname != "" {
		pkts = append(pkts, protocol.NewChangeName(groupNumber, ourNumber, next(), *nickname))
	}
	if *say != "" {
		pkts = append(pkts, protocol.NewMessage(groupNumber, ourNumber, next(), *say))
	}

	if err := peer.SendPackets(ctx, pkts); err != nil {
		log.Printf("❌ Failed to send: %v", err)
		return
	}
	log.Printf("✓ Sent %d packets to %s", len(pkts), remote.ShortString())

	// Keep the stream alive with pings until shutdown
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			peer.Close()
			return
		case <-ticker.C:
			if err := peer.SendPacket(ctx, protocol.NewPing(groupNumber, ourNumber, next())); err != nil {
				log.Printf("⚠️  Ping failed: %v", err)
			}
		}
	}
}

func startHeartbeatLoop(ctx context.Context, host *transport.Host, dispatcher *network.Dispatcher, capture *storage.CaptureStore) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		hostStats := host.Stats()
		dispatchStats := dispatcher.Stats()

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("💓 Heartbeat")
		log.Printf("   Connected peers: %d", host.PeerCount())
		log.Printf("   Frames in/out: %d/%d (dropped %d)", hostStats.FramesIn, hostStats.FramesOut, hostStats.Dropped)
		log.Printf("   Packets handled: %d (malformed %d, unhandled %d, failed %d)",
			dispatchStats.Handled, dispatchStats.Dropped, dispatchStats.Unhandled, dispatchStats.Failed)

		if capture != nil {
			if count, err := capture.Count(ctx); err == nil {
				log.Printf("   Captured frames: %d", count)
			}
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

func waitForShutdown(cancel context.CancelFunc, host *transport.Host, capture *storage.CaptureStore) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh

	log.Println("🛑 Shutting down...")
	cancel()

	if err := host.Close(); err != nil {
		log.Printf("Error closing host: %v", err)
	}
	if capture != nil {
		if err := capture.Close(); err != nil {
			log.Printf("Error closing capture store: %v", err)
		}
	}

	log.Println("👋 Goodbye!")
}
