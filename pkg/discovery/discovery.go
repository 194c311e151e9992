// Package discovery advertises Seif listeners on the local network via
// DNS-SD and browses for peers, so acquaintances can be bootstrapped
// without out-of-band address exchange.
package discovery

import (
	"errors"
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"

	"github.com/backkem/seif/pkg/crypto"
)

// ServiceType is the DNS-SD service type for Seif listeners.
const ServiceType = "_seif._tcp"

// txtPublicKey is the TXT key carrying the hex-encoded public key.
const txtPublicKey = "pk"

// Discovery errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed
	// advertiser.
	ErrClosed = errors.New("discovery: closed")

	// ErrMissingPublicKey is returned when advertising without a key.
	ErrMissingPublicKey = errors.New("discovery: missing public key")
)

// MDNSServer is the interface for mDNS service registration.
// This allows for dependency injection in tests.
type MDNSServer interface {
	// Shutdown stops the server.
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	// Register creates a new mDNS server for the given service.
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

// zeroconfServerFactory is the production implementation using
// grandcat/zeroconf.
type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// AdvertiserConfig holds configuration for the Advertiser.
type AdvertiserConfig struct {
	// Instance is the DNS-SD instance name, typically the local petname.
	Instance string

	// Port is the listening port to advertise.
	Port int

	// PublicKey is our raw 133-byte public key, published in TXT.
	PublicKey []byte

	// Interfaces specifies which network interfaces to advertise on.
	// If nil, all interfaces are used.
	Interfaces []net.Interface

	// ServerFactory is the factory for creating mDNS servers.
	// If nil, the default zeroconf factory is used.
	ServerFactory MDNSServerFactory

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes one Seif listener to the network.
type Advertiser struct {
	server MDNSServer
	log    logging.LeveledLogger
	closed bool
}

// NewAdvertiser registers the listener with mDNS and starts answering
// queries.
func NewAdvertiser(config AdvertiserConfig) (*Advertiser, error) {
	if len(config.PublicKey) != crypto.P521PublicKeySizeBytes {
		return nil, ErrMissingPublicKey
	}
	if config.Instance == "" {
		config.Instance = "seif"
	}

	factory := config.ServerFactory
	if factory == nil {
		factory = &zeroconfServerFactory{}
	}

	txt := []string{fmt.Sprintf("%s=%s", txtPublicKey, crypto.HexEncode(config.PublicKey))}
	server, err := factory.Register(config.Instance, ServiceType, "local.", config.Port, txt, config.Interfaces)
	if err != nil {
		return nil, fmt.Errorf("discovery: register failed: %w", err)
	}

	a := &Advertiser{server: server}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
		a.log.Infof("advertising %s on port %d", config.Instance, config.Port)
	}
	return a, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a.closed {
		return
	}
	a.closed = true
	a.server.Shutdown()
}
