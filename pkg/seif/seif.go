// Package seif is the user-facing façade of the Seif protocol engine.
//
// Connect dials a peer and drives the initiator side of the handshake;
// Listen accepts connections and drives the receiver side. Both bind each
// transport connection to one session and surface it to the caller as a
// Conn. Redirects are honoured transparently: the old connection closes,
// the caller is told, and a fresh handshake starts against the new peer.
package seif

import (
	"github.com/backkem/seif/pkg/record"
	"github.com/backkem/seif/pkg/session"
)

// Conn is an established Seif connection as seen by the caller.
type Conn struct {
	sess *session.Session
}

// Send transmits msg and returns a waiter that resolves on the peer's
// acknowledgement. A failed waiter carries the teardown reason and does
// not imply the message was not delivered.
func (c *Conn) Send(msg record.Message) (*session.SendResult, error) {
	return c.sess.Send(msg)
}

// StatusSend transmits msg fire-and-forget.
func (c *Conn) StatusSend(msg record.Message) error {
	return c.sess.StatusSend(msg)
}

// Close tears the connection down at the caller's request.
func (c *Conn) Close(reason error) {
	c.sess.Close(reason)
}

// Redirect asks the connected initiator to re-establish against another
// peer. Only valid on connections accepted by a listener.
func (c *Conn) Redirect(address string, publicKey []byte, permanent bool, redirectContext any) error {
	return c.sess.Redirect(address, publicKey, permanent, redirectContext)
}

// PeerPublicKey returns the peer's raw 133-byte public key once known.
func (c *Conn) PeerPublicKey() []byte {
	pub := c.sess.PeerPublicKey()
	if pub == nil {
		return nil
	}
	return pub.Bytes()
}
