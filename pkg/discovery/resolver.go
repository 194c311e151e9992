package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/backkem/seif/pkg/crypto"
)

// DefaultBrowseTimeout bounds a Browse call when the context carries no
// deadline of its own.
const DefaultBrowseTimeout = 5 * time.Second

// Peer is a discovered Seif listener.
type Peer struct {
	// Instance is the DNS-SD instance name the peer advertised.
	Instance string

	// Address is a dialable host:port.
	Address string

	// PublicKey is the peer's raw 133-byte public key from TXT.
	PublicKey []byte
}

// Browse scans the local network for Seif listeners until ctx expires.
// Entries without a valid public key TXT record are dropped.
func Browse(ctx context.Context) ([]*Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver failed: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBrowseTimeout)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: browse failed: %w", err)
	}

	var peers []*Peer
	for entry := range entries {
		if peer := peerFromEntry(entry); peer != nil {
			peers = append(peers, peer)
		}
	}
	return peers, nil
}

// peerFromEntry converts one mDNS answer, or returns nil when it does not
// describe a usable peer.
func peerFromEntry(entry *zeroconf.ServiceEntry) *Peer {
	var rawKey []byte
	for _, txt := range entry.Text {
		if value, ok := strings.CutPrefix(txt, txtPublicKey+"="); ok {
			decoded, err := crypto.HexDecode(value)
			if err != nil {
				return nil
			}
			rawKey = decoded
		}
	}
	if len(rawKey) != crypto.P521PublicKeySizeBytes {
		return nil
	}

	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return nil
	}

	return &Peer{
		Instance:  entry.Instance,
		Address:   net.JoinHostPort(ip.String(), fmt.Sprintf("%d", entry.Port)),
		PublicKey: rawKey,
	}
}
