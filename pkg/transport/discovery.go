package transport

import (
	"context"
	"fmt"
	"log"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/peer"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
)

// Discovery finds other members of a conference through the Kademlia DHT.
// Members advertise under a namespace derived from the conference ID and
// look each other up by the same namespace.
type Discovery struct {
	host    *Host
	dht     *dht.IpfsDHT
	routing *drouting.RoutingDiscovery
}

// ConferenceNamespace returns the DHT namespace for a conference ID. The ID
// itself is never published.
func ConferenceNamespace(conferenceID crypto.PublicKey) string {
	return "/zentalk/conference/" + crypto.ConferenceTopic(conferenceID)
}

// NewDiscovery starts a DHT on h and connects to the bootstrap peers. An
// empty bootstrap list starts a standalone DHT that others can join.
func NewDiscovery(ctx context.Context, h *Host, bootstrapPeers []string) (*Discovery, error) {
	kad, err := dht.New(ctx, h.host,
		dht.Mode(dht.ModeServer),
		dht.BootstrapPeers(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create DHT: %w", err)
	}

	var connected int
	for _, addr := range bootstrapPeers {
		if _, err := h.Connect(ctx, addr); err != nil {
			log.Printf("Failed to connect to bootstrap peer: %v", err)
			continue
		}
		connected++
	}
	if len(bootstrapPeers) > 0 && connected == 0 {
		kad.Close()
		return nil, fmt.Errorf("failed to connect to any bootstrap peers")
	}

	if err := kad.Bootstrap(ctx); err != nil {
		kad.Close()
		return nil, fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	return &Discovery{
		host:    h,
		dht:     kad,
		routing: drouting.NewRoutingDiscovery(kad),
	}, nil
}

// Advertise announces this host as a member of the conference
func (d *Discovery) Advertise(ctx context.Context, conferenceID crypto.PublicKey) error {
	if _, err := d.routing.Advertise(ctx, ConferenceNamespace(conferenceID)); err != nil {
		return fmt.Errorf("advertise conference %s: %w", conferenceID.Short(), err)
	}
	return nil
}

// FindMembers returns up to limit other hosts advertising the conference
func (d *Discovery) FindMembers(ctx context.Context, conferenceID crypto.PublicKey, limit int) ([]peer.AddrInfo, error) {
	ch, err := d.routing.FindPeers(ctx, ConferenceNamespace(conferenceID), discovery.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("find members of %s: %w", conferenceID.Short(), err)
	}

	var members []peer.AddrInfo
	for info := range ch {
		if info.ID == d.host.ID() || len(info.Addrs) == 0 {
			continue
		}
		members = append(members, info)
	}
	return members, nil
}

// RoutingTableSize returns the number of peers in the DHT routing table
func (d *Discovery) RoutingTableSize() int {
	return d.dht.RoutingTable().Size()
}

// Close shuts the DHT down. The host stays open.
func (d *Discovery) Close() error {
	return d.dht.Close()
}
