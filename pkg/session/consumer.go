package session

import (
	"crypto/ecdh"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/record"
	"github.com/backkem/seif/pkg/transport"
)

// Callbacks are the event hooks a session owner supplies. Once the session
// reaches PhaseClosed only the teardown itself is reported: OnClose, and
// OnRedirect on an initiator that honoured a Redirect. No other hook fires.
type Callbacks struct {
	// OnOpen fires once when the handshake completes.
	OnOpen func(*Session)

	// OnMessage fires for every inbound Send or StatusSend payload, in
	// wire order.
	OnMessage func(*Session, record.Message)

	// OnClose fires at most once with the teardown reason; nil for an
	// orderly remote close. It is suppressed for a local Close.
	OnClose func(*Session, error)

	// OnRedirect fires on an initiator after the session closed with
	// ErrRedirected, carrying the new peer coordinates.
	OnRedirect func(*Session, *Redirect)
}

// Config configures a Session.
type Config struct {
	// Role selects which side of the handshake this session plays.
	// Required.
	Role Role

	// KeyPair is our static P-521 key pair. Required.
	KeyPair *crypto.KeyPair

	// RemotePublicKey is the expected peer identity. Required for
	// initiators; receivers learn it from the Hello record.
	RemotePublicKey *ecdh.PublicKey

	// HelloValue travels sealed inside the Hello record. Initiator only.
	HelloValue any

	// ConnectionInfo travels in the clear inside the Hello record.
	// Initiator only.
	ConnectionInfo any

	// Callbacks are the owner's event hooks.
	Callbacks Callbacks

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// IVLimit overrides the IV counter bound. Zero means the default.
	// Used in tests to exercise exhaustion.
	IVLimit uint64
}

// destroyMode selects teardown behaviour.
type destroyMode int

const (
	// destroyProblem closes the transport and reports the reason.
	destroyProblem destroyMode = iota

	// destroyLocal closes the transport silently; the caller asked.
	destroyLocal

	// destroyTransportClosed skips re-closing an already dead transport.
	destroyTransportClosed
)

// Session is the per-connection protocol engine. One transport connection
// is bound to exactly one Session for its whole life.
type Session struct {
	id   string
	role Role
	cfg  Config
	log  logging.LeveledLogger

	// parser state is only touched from the transport's receive
	// goroutine; see HandleReceive.
	parser *record.Parser

	encIV *crypto.IVGenerator
	decIV *crypto.IVGenerator

	// sendMu serialises record construction and transmission: exactly one
	// record is in construction or on the wire at a time, so records
	// commit in submission order and IV order matches wire order.
	sendMu sync.Mutex

	mu           sync.Mutex
	phase        Phase
	conn         transport.Conn
	handshakeKey []byte
	sessionKey   []byte
	remotePub    *ecdh.PublicKey
	pendingAcks  []*SendResult
	closeReason  error
	helloValue   any
	connInfo     any
}

// New creates a session in its initial phase. Call Start once the
// transport connection is open.
func New(cfg Config) (*Session, error) {
	if !cfg.Role.IsValid() {
		return nil, ErrInvalidRole
	}
	if cfg.KeyPair == nil {
		return nil, ErrMissingKeyPair
	}
	if cfg.Role == RoleInitiator && cfg.RemotePublicKey == nil {
		return nil, ErrMissingRemoteKey
	}

	s := &Session{
		id:     uuid.NewString(),
		role:   cfg.Role,
		cfg:    cfg,
		parser: record.NewParser(),
	}

	limit := cfg.IVLimit
	if limit == 0 {
		limit = crypto.IVCounterMax
	}
	// The initiator tags its records with fixed field 0, the receiver
	// with 1. Both generators persist across the handshake-key and
	// session-key phases.
	if cfg.Role == RoleInitiator {
		s.encIV = crypto.NewIVGeneratorWithLimit(crypto.FixedFieldInitiator, limit)
		s.decIV = crypto.NewIVGeneratorWithLimit(crypto.FixedFieldReceiver, limit)
		s.phase = PhaseAwaitingAuthHello
		s.remotePub = cfg.RemotePublicKey
	} else {
		s.encIV = crypto.NewIVGeneratorWithLimit(crypto.FixedFieldReceiver, limit)
		s.decIV = crypto.NewIVGeneratorWithLimit(crypto.FixedFieldInitiator, limit)
		s.phase = PhaseAwaitingHello
	}

	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("session")
	}

	return s, nil
}

// Start binds the session to its transport connection. Initiator sessions
// send their Hello record here.
func (s *Session) Start(conn transport.Conn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debugf("session %s: %s bound to %s", s.id, s.role, conn.RemoteAddr())
	}

	if s.role == RoleInitiator {
		return s.sendHello()
	}
	return nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Role returns which side of the handshake this session plays.
func (s *Session) Role() Role {
	return s.role
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// PeerPublicKey returns the peer's static public key: configured a priori
// for initiators, learned from the Hello record for receivers. Nil on a
// receiver before the handshake.
func (s *Session) PeerPublicKey() *ecdh.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remotePub
}

// HelloValue returns the application value carried by the peer's Hello
// record. Receiver only; nil before the handshake.
func (s *Session) HelloValue() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.helloValue
}

// ConnectionInfo returns the cleartext connection info carried by the
// peer's Hello record. Receiver only.
func (s *Session) ConnectionInfo() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connInfo
}

// CloseReason returns the teardown reason once the session is closed.
func (s *Session) CloseReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}

// Close tears the session down at the caller's request. The transport is
// closed, pending sends fail with reason, and no close callback fires.
func (s *Session) Close(reason error) {
	s.destroy(reason, destroyLocal)
}

// HandleTransportClose is wired to the transport's close callback. A nil
// err is an orderly close by the peer.
func (s *Session) HandleTransportClose(err error) {
	if err != nil {
		err = wrapTransportErr(err)
	}
	s.destroy(err, destroyTransportClosed)
}

// encrypter returns a CryptFunc sealing elements under key with our
// direction's IV sequence.
func (s *Session) encrypter(key []byte) record.CryptFunc {
	return func(plain []byte) ([]byte, error) {
		iv, err := s.encIV.Next()
		if err != nil {
			return nil, err
		}
		return crypto.AESGCMEncrypt(plain, key, iv)
	}
}

// decrypter returns a CryptFunc opening elements under key with the
// peer direction's IV sequence.
func (s *Session) decrypter(key []byte) record.CryptFunc {
	return func(wire []byte) ([]byte, error) {
		iv, err := s.decIV.Next()
		if err != nil {
			return nil, err
		}
		return crypto.AESGCMDecrypt(wire, key, iv)
	}
}

// destroy is the single teardown routine. Idempotent; the second call is
// a no-op.
func (s *Session) destroy(reason error, mode destroyMode) {
	s.mu.Lock()
	if s.phase == PhaseClosed {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseClosed
	s.closeReason = reason
	pending := s.pendingAcks
	s.pendingAcks = nil
	handshakeKey := s.handshakeKey
	sessionKey := s.sessionKey
	s.handshakeKey = nil
	s.sessionKey = nil
	conn := s.conn
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debugf("session %s: closed (%s): %v", s.id, s.role, reason)
	}

	failReason := reason
	if failReason == nil {
		failReason = ErrClosed
	}
	for _, w := range pending {
		w.resolve(failReason)
	}

	if handshakeKey != nil {
		crypto.Memzero(handshakeKey)
	}
	if sessionKey != nil {
		crypto.Memzero(sessionKey)
	}

	if mode != destroyTransportClosed && conn != nil {
		conn.Close()
	}
	if mode != destroyLocal && s.cfg.Callbacks.OnClose != nil {
		s.cfg.Callbacks.OnClose(s, reason)
	}
}
