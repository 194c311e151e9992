package session

import (
	"errors"
	"fmt"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/handshake"
	"github.com/backkem/seif/pkg/record"
)

// Send transmits msg and returns a waiter that resolves when the peer's
// engine acknowledges it. The waiter fails with the session's teardown
// reason if the connection dies first; failure does not imply the message
// was not delivered.
func (s *Session) Send(msg record.Message) (*SendResult, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	key, err := s.openKey()
	if err != nil {
		return nil, err
	}

	wire, err := record.Build(record.NewIdentifier(record.TypeSend), msg, s.encrypter(key))
	if err != nil {
		return nil, s.buildFailed(err)
	}

	// Register the waiter before the bytes can reach the peer so a fast
	// acknowledgement always finds it; FIFO order matches wire order
	// because sendMu is held across both steps.
	res := newSendResult()
	s.mu.Lock()
	s.pendingAcks = append(s.pendingAcks, res)
	s.mu.Unlock()

	if err := s.transportSend(wire); err != nil {
		s.destroy(err, destroyProblem)
		return nil, err
	}
	return res, nil
}

// StatusSend transmits msg fire-and-forget: no acknowledgement is
// requested and none will arrive.
func (s *Session) StatusSend(msg record.Message) error {
	return s.sendRecord(record.TypeStatusSend, msg)
}

// Redirect asks the connected initiator to re-establish against another
// peer. Receiver only. publicKey is the new peer's raw public key;
// redirectContext travels to the new connection as its connection info.
func (s *Session) Redirect(address string, publicKey []byte, permanent bool, redirectContext any) error {
	if s.role != RoleReceiver {
		return ErrRedirectNotAllowed
	}
	if _, err := crypto.ImportPublicKey(publicKey); err != nil {
		return err
	}

	msg := record.Message{
		"address":   address,
		"publicKey": crypto.HexEncode(publicKey),
		"permanent": permanent,
	}
	if redirectContext != nil {
		msg["redirectContext"] = redirectContext
	}
	return s.sendRecord(record.TypeRedirect, msg)
}

// sendRecord builds and transmits one record under the session key,
// holding the send queue for the whole construction so records commit in
// submission order.
func (s *Session) sendRecord(t record.Type, msg record.Message) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	key, err := s.openKey()
	if err != nil {
		return err
	}

	wire, err := record.Build(record.NewIdentifier(t), msg, s.encrypter(key))
	if err != nil {
		return s.buildFailed(err)
	}

	if err := s.transportSend(wire); err != nil {
		s.destroy(err, destroyProblem)
		return err
	}
	return nil
}

// sendHello generates the handshake key and transmits the opening record.
// Initiator only.
func (s *Session) sendHello() error {
	handshakeKey, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	wire, err := handshake.BuildHello(s.cfg.KeyPair, s.cfg.RemotePublicKey, handshakeKey,
		s.encIV, s.cfg.HelloValue, s.cfg.ConnectionInfo)
	if err != nil {
		s.destroy(err, destroyProblem)
		return err
	}

	s.mu.Lock()
	s.handshakeKey = handshakeKey
	s.mu.Unlock()
	// The AuthHello answer arrives encrypted under the handshake key.
	s.parser.SetCipher(s.decrypter(handshakeKey))

	if err := s.transportSend(wire); err != nil {
		s.destroy(err, destroyProblem)
		return err
	}
	return nil
}

// openKey returns the session key, or the reason no record may be sent.
func (s *Session) openKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseOpen:
		return s.sessionKey, nil
	case PhaseClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotOpen
	}
}

// buildFailed maps a record-construction error to its severity: IV
// exhaustion kills the session, a too-big identifier is a synchronous
// build failure the session survives.
func (s *Session) buildFailed(err error) error {
	if errors.Is(err, crypto.ErrIVExhausted) {
		s.destroy(err, destroyProblem)
	}
	return err
}

// transportSend writes one framed record to the wire.
func (s *Session) transportSend(wire []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}
	if err := conn.Send(wire); err != nil {
		return wrapTransportErr(err)
	}
	return nil
}

func wrapTransportErr(err error) error {
	if errors.Is(err, ErrTransportFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransportFailed, err)
}
