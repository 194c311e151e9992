package seif

import (
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/record"
	"github.com/backkem/seif/pkg/session"
	"github.com/backkem/seif/pkg/transport"
)

// ListenConfig configures a listening endpoint.
type ListenConfig struct {
	// KeyPair is our static P-521 key pair. Required.
	KeyPair *crypto.KeyPair

	// Listener opens the transport endpoint. Required.
	Listener transport.ListenerFactory

	// Address is opaque to the engine and forwarded to the listener.
	Address string

	// OnOpen fires when an inbound handshake completes, with the peer's
	// raw public key and whatever the initiator put in its Hello.
	OnOpen func(conn *Conn, peerPublicKey []byte, helloValue, connectionInfo any)

	// OnMessage fires for every inbound application message, in wire
	// order.
	OnMessage func(*Conn, record.Message)

	// OnClose fires at most once per connection with the teardown reason;
	// nil for an orderly remote close.
	OnClose func(*Conn, error)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// IVLimit overrides the IV counter bound. Zero means the default.
	IVLimit uint64
}

// Listener is the handle returned by Listen.
type Listener struct {
	cfg ListenConfig
	log logging.LeveledLogger
	tl  transport.Listener

	mu       sync.Mutex
	sessions map[transport.Conn]*session.Session
	stopped  bool
}

// Listen binds a listening endpoint and answers every inbound handshake
// as receiver.
func Listen(cfg ListenConfig) (*Listener, error) {
	if cfg.Listener == nil {
		return nil, ErrMissingListener
	}

	l := &Listener{
		cfg:      cfg,
		sessions: make(map[transport.Conn]*session.Session),
	}
	if cfg.LoggerFactory != nil {
		l.log = cfg.LoggerFactory.NewLogger("seif")
	}

	tl, err := cfg.Listener.Listen(cfg.Address, transport.Callbacks{
		OnOpen:    l.handleOpen,
		OnReceive: l.handleReceive,
		OnClose:   l.handleClose,
	})
	if err != nil {
		return nil, err
	}
	l.tl = tl
	return l, nil
}

// Addr is the bound transport address.
func (l *Listener) Addr() string {
	return l.tl.Addr()
}

// Stop closes the endpoint and tears down every live session with reason.
// After Stop returns no further callback fires.
func (l *Listener) Stop(reason error) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	sessions := make([]*session.Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.sessions = make(map[transport.Conn]*session.Session)
	l.mu.Unlock()

	for _, s := range sessions {
		s.Close(reason)
	}
	return l.tl.Stop()
}

// handleOpen binds a fresh receiver session to an accepted connection.
func (l *Listener) handleOpen(tc transport.Conn) {
	conn := &Conn{}
	sess, err := session.New(session.Config{
		Role:          session.RoleReceiver,
		KeyPair:       l.cfg.KeyPair,
		LoggerFactory: l.cfg.LoggerFactory,
		IVLimit:       l.cfg.IVLimit,
		Callbacks: session.Callbacks{
			OnOpen: func(s *session.Session) {
				if l.cfg.OnOpen != nil {
					var peerKey []byte
					if pub := s.PeerPublicKey(); pub != nil {
						peerKey = pub.Bytes()
					}
					l.cfg.OnOpen(conn, peerKey, s.HelloValue(), s.ConnectionInfo())
				}
			},
			OnMessage: func(_ *session.Session, msg record.Message) {
				if l.cfg.OnMessage != nil {
					l.cfg.OnMessage(conn, msg)
				}
			},
			OnClose: func(_ *session.Session, reason error) {
				if l.cfg.OnClose != nil {
					l.cfg.OnClose(conn, reason)
				}
			},
		},
	})
	if err != nil {
		if l.log != nil {
			l.log.Errorf("session setup failed: %v", err)
		}
		tc.Close()
		return
	}
	conn.sess = sess

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		tc.Close()
		return
	}
	l.sessions[tc] = sess
	l.mu.Unlock()

	if err := sess.Start(tc); err != nil && l.log != nil {
		l.log.Warnf("session start failed: %v", err)
	}
}

func (l *Listener) handleReceive(tc transport.Conn, data []byte) {
	l.mu.Lock()
	sess := l.sessions[tc]
	l.mu.Unlock()
	if sess != nil {
		sess.HandleReceive(data)
	}
}

func (l *Listener) handleClose(tc transport.Conn, err error) {
	l.mu.Lock()
	sess := l.sessions[tc]
	delete(l.sessions, tc)
	l.mu.Unlock()
	if sess != nil {
		sess.HandleTransportClose(err)
	}
}
