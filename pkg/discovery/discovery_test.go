package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"

	"github.com/backkem/seif/pkg/crypto"
)

// mockServer records Shutdown calls.
type mockServer struct {
	shutdowns int
}

func (m *mockServer) Shutdown() { m.shutdowns++ }

// mockFactory captures registration parameters.
type mockFactory struct {
	instance string
	service  string
	port     int
	txt      []string
	server   *mockServer
}

func (m *mockFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	m.instance = instance
	m.service = service
	m.port = port
	m.txt = txt
	m.server = &mockServer{}
	return m.server, nil
}

func TestAdvertiserRegisters(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	factory := &mockFactory{}
	a, err := NewAdvertiser(AdvertiserConfig{
		Instance:      "alice",
		Port:          4004,
		PublicKey:     kp.PublicKeyBytes(),
		ServerFactory: factory,
	})
	if err != nil {
		t.Fatalf("NewAdvertiser() error: %v", err)
	}

	if factory.service != ServiceType {
		t.Errorf("service = %q, want %q", factory.service, ServiceType)
	}
	if factory.instance != "alice" || factory.port != 4004 {
		t.Errorf("instance/port = %q/%d", factory.instance, factory.port)
	}
	wantTXT := "pk=" + crypto.HexEncode(kp.PublicKeyBytes())
	if len(factory.txt) != 1 || factory.txt[0] != wantTXT {
		t.Errorf("txt = %v, want [%s]", factory.txt, wantTXT)
	}

	a.Shutdown()
	a.Shutdown() // idempotent
	if factory.server.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", factory.server.shutdowns)
	}
}

func TestAdvertiserRequiresPublicKey(t *testing.T) {
	_, err := NewAdvertiser(AdvertiserConfig{Instance: "x", Port: 1})
	if err != ErrMissingPublicKey {
		t.Errorf("NewAdvertiser() error = %v, want ErrMissingPublicKey", err)
	}
}

func TestPeerFromEntry(t *testing.T) {
	kp, _ := crypto.GenerateKeyPair()
	hexKey := crypto.HexEncode(kp.PublicKeyBytes())

	tests := []struct {
		name  string
		entry *zeroconf.ServiceEntry
		want  bool
	}{
		{
			name: "valid ipv4",
			entry: &zeroconf.ServiceEntry{
				Text:     []string{"pk=" + hexKey},
				AddrIPv4: []net.IP{net.IPv4(192, 168, 1, 2)},
				Port:     4004,
			},
			want: true,
		},
		{
			name: "missing key",
			entry: &zeroconf.ServiceEntry{
				Text:     []string{"other=1"},
				AddrIPv4: []net.IP{net.IPv4(192, 168, 1, 2)},
				Port:     4004,
			},
			want: false,
		},
		{
			name: "corrupt key",
			entry: &zeroconf.ServiceEntry{
				Text:     []string{"pk=zz"},
				AddrIPv4: []net.IP{net.IPv4(192, 168, 1, 2)},
				Port:     4004,
			},
			want: false,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				Text: []string{"pk=" + hexKey},
				Port: 4004,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := peerFromEntry(tt.entry)
			if (peer != nil) != tt.want {
				t.Errorf("peerFromEntry() = %v, want present=%v", peer, tt.want)
			}
			if peer != nil && peer.Address != "192.168.1.2:4004" {
				t.Errorf("address = %q", peer.Address)
			}
		})
	}
}
