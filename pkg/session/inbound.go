package session

import (
	"errors"
	"fmt"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/handshake"
	"github.com/backkem/seif/pkg/record"
)

// HandleReceive is wired to the transport's receive callback. It appends
// the chunk to the parse buffer and drives the parse state machine until
// the buffer is exhausted or a required quantity is not yet available.
//
// The transport delivers chunks from a single goroutine per connection,
// which is the only goroutine that touches the parser; the decryption of
// one element always completes before the next is attempted, so inbound
// IVs are consumed in wire order.
func (s *Session) HandleReceive(data []byte) {
	s.mu.Lock()
	closed := s.phase == PhaseClosed
	s.mu.Unlock()
	if closed {
		return
	}

	s.parser.Feed(data)

	for {
		s.mu.Lock()
		closed := s.phase == PhaseClosed
		s.mu.Unlock()
		if closed {
			return
		}

		rec, err := s.parser.Next()
		if err != nil {
			if errors.Is(err, record.ErrUnknownMessageType) {
				err = fmt.Errorf("%w: %w", ErrProtocolViolation, err)
			}
			s.destroy(err, destroyProblem)
			return
		}
		if rec == nil {
			return
		}

		if err := s.handleRecord(rec); err != nil {
			s.destroy(err, destroyProblem)
			return
		}
	}
}

// handleRecord dispatches one complete record according to the phase.
// A non-nil error is fatal to the connection.
func (s *Session) handleRecord(rec *record.Record) error {
	s.mu.Lock()
	phase := s.phase
	s.mu.Unlock()

	switch phase {
	case PhaseAwaitingHello:
		return s.handleHello(rec)
	case PhaseAwaitingAuthHello:
		return s.handleAuthHello(rec)
	case PhaseOpen:
		return s.handleOpen(rec)
	default:
		return nil
	}
}

// handleHello processes the initiator's opening record and answers with
// AuthHello. Receiver only.
func (s *Session) handleHello(rec *record.Record) error {
	hello, err := handshake.ParseHello(rec, s.cfg.KeyPair, s.decIV)
	if err != nil {
		return err
	}

	sessionKey, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return fmt.Errorf("%w: %v", handshake.ErrHandshakeFailed, err)
	}

	s.sendMu.Lock()
	wire, err := handshake.BuildAuthHello(hello.InitiatorPublicKey, sessionKey, s.encrypter(hello.HandshakeKey))
	if err != nil {
		s.sendMu.Unlock()
		return err
	}
	if err := s.transportSend(wire); err != nil {
		s.sendMu.Unlock()
		return err
	}
	s.sendMu.Unlock()

	// The handshake key is never used again once the session key is
	// adopted.
	crypto.Memzero(hello.HandshakeKey)

	s.mu.Lock()
	s.sessionKey = sessionKey
	s.remotePub = hello.InitiatorPublicKey
	s.helloValue = hello.Value
	s.connInfo = hello.ConnectionInfo
	s.phase = PhaseOpen
	s.mu.Unlock()
	s.parser.SetCipher(s.decrypter(sessionKey))

	if s.log != nil {
		s.log.Infof("session %s: open (receiver)", s.id)
	}
	if s.cfg.Callbacks.OnOpen != nil {
		s.cfg.Callbacks.OnOpen(s)
	}
	return nil
}

// handleAuthHello processes the receiver's answer and adopts the session
// key. Initiator only.
func (s *Session) handleAuthHello(rec *record.Record) error {
	sessionKey, err := handshake.ParseAuthHello(rec, s.cfg.KeyPair)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.handshakeKey != nil {
		crypto.Memzero(s.handshakeKey)
		s.handshakeKey = nil
	}
	s.sessionKey = sessionKey
	s.phase = PhaseOpen
	s.mu.Unlock()
	s.parser.SetCipher(s.decrypter(sessionKey))

	if s.log != nil {
		s.log.Infof("session %s: open (initiator)", s.id)
	}
	if s.cfg.Callbacks.OnOpen != nil {
		s.cfg.Callbacks.OnOpen(s)
	}
	return nil
}

// handleOpen dispatches post-handshake records.
func (s *Session) handleOpen(rec *record.Record) error {
	switch rec.Identifier.Type {
	case record.TypeStatusSend:
		if s.cfg.Callbacks.OnMessage != nil {
			s.cfg.Callbacks.OnMessage(s, rec.Message)
		}
		return nil

	case record.TypeSend:
		// Acknowledge before delivery so the ack reflects wire order,
		// not application processing time.
		if err := s.sendRecord(record.TypeAcknowledge, record.Message{}); err != nil {
			return err
		}
		if s.cfg.Callbacks.OnMessage != nil {
			s.cfg.Callbacks.OnMessage(s, rec.Message)
		}
		return nil

	case record.TypeAcknowledge:
		return s.handleAcknowledge()

	case record.TypeRedirect:
		return s.handleRedirect(rec)

	default:
		return fmt.Errorf("%w: %q after handshake", ErrProtocolViolation, rec.Identifier.Type)
	}
}

// handleAcknowledge resolves the oldest outstanding Send.
func (s *Session) handleAcknowledge() error {
	s.mu.Lock()
	if len(s.pendingAcks) == 0 {
		s.mu.Unlock()
		return ErrUnexpectedAcknowledgement
	}
	oldest := s.pendingAcks[0]
	s.pendingAcks = s.pendingAcks[1:]
	s.mu.Unlock()

	oldest.resolve(nil)
	return nil
}

// handleRedirect honours an inbound Redirect: the session closes with
// ErrRedirected and the owner is told where to go next. The protocol does
// not negotiate; an initiator must accept. A receiver must never see one.
func (s *Session) handleRedirect(rec *record.Record) error {
	if s.role != RoleInitiator {
		return fmt.Errorf("%w: redirect towards receiver", ErrProtocolViolation)
	}

	red, err := parseRedirect(rec.Message)
	if err != nil {
		return err
	}

	if s.log != nil {
		s.log.Infof("session %s: redirected to %s", s.id, red.Address)
	}

	s.destroy(ErrRedirected, destroyProblem)
	if s.cfg.Callbacks.OnRedirect != nil {
		s.cfg.Callbacks.OnRedirect(s, red)
	}
	return nil
}

// parseRedirect validates a Redirect payload.
func parseRedirect(msg record.Message) (*Redirect, error) {
	address, ok := msg["address"].(string)
	if !ok || address == "" {
		return nil, fmt.Errorf("%w: redirect without address", ErrProtocolViolation)
	}
	hexKey, ok := msg["publicKey"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: redirect without public key", ErrProtocolViolation)
	}
	rawKey, err := crypto.HexDecode(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect public key: %v", ErrProtocolViolation, err)
	}
	if _, err := crypto.ImportPublicKey(rawKey); err != nil {
		return nil, fmt.Errorf("%w: redirect public key: %v", ErrProtocolViolation, err)
	}
	permanent, _ := msg["permanent"].(bool)

	return &Redirect{
		Address:   address,
		PublicKey: rawKey,
		Permanent: permanent,
		Context:   msg["redirectContext"],
	}, nil
}
