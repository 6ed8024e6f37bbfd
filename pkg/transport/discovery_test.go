package transport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
)

func TestConferenceNamespace(t *testing.T) {
	var id crypto.PublicKey
	id[0] = 0xAB

	ns := ConferenceNamespace(id)
	assert.True(t, strings.HasPrefix(ns, "/zentalk/conference/"))
	assert.Equal(t, "/zentalk/conference/"+crypto.ConferenceTopic(id), ns)
	assert.NotContains(t, ns, id.String())
}

func TestDiscoveryFindsMembers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bootstrap := newLocalHost(t, nil)
	member := newLocalHost(t, nil)

	bootstrapDiscovery, err := NewDiscovery(ctx, bootstrap, nil)
	require.NoError(t, err)
	defer bootstrapDiscovery.Close()

	memberDiscovery, err := NewDiscovery(ctx, member, []string{bootstrap.Addresses()[0].String()})
	require.NoError(t, err)
	defer memberDiscovery.Close()

	conferenceID, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	// Routing tables fill in once the peers identify each other
	require.Eventually(t, func() bool {
		return bootstrapDiscovery.RoutingTableSize() > 0 && memberDiscovery.RoutingTableSize() > 0
	}, 10*time.Second, 100*time.Millisecond)

	require.NoError(t, bootstrapDiscovery.Advertise(ctx, conferenceID))

	var found bool
	require.Eventually(t, func() bool {
		members, err := memberDiscovery.FindMembers(ctx, conferenceID, 10)
		if err != nil {
			return false
		}
		for _, m := range members {
			if m.ID == bootstrap.ID() {
				found = true
			}
		}
		return found
	}, 10*time.Second, 200*time.Millisecond)
}

func TestDiscoveryBootstrapFailure(t *testing.T) {
	h := newLocalHost(t, nil)

	_, err := NewDiscovery(context.Background(), h, []string{"/ip4/127.0.0.1/tcp/1/p2p/12D3KooWGzxzKZYveHXtpG6AsrUJBcWxHBFS2HsEoGTxrMLvKXtf"})
	assert.Error(t, err)
}
