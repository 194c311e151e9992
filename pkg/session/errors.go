package session

import "errors"

// Session errors. Any of these routed through teardown appears exactly
// once, on the close callback, unless suppressed by an explicit local
// close.
var (
	// ErrClosed is returned when an operation is attempted on a closed
	// session.
	ErrClosed = errors.New("session: closed")

	// ErrNotOpen is returned when sending before the handshake completes.
	ErrNotOpen = errors.New("session: not open")

	// ErrProtocolViolation covers records the peer may not legally send:
	// handshake records after open, redirects towards a receiver, or
	// unknown record types.
	ErrProtocolViolation = errors.New("session: protocol violation")

	// ErrUnexpectedAcknowledgement is returned when an Acknowledge arrives
	// with no outstanding Send. Fatal to the connection.
	ErrUnexpectedAcknowledgement = errors.New("session: unexpected acknowledgement")

	// ErrRedirected is the teardown reason of an initiator session that
	// honoured a Redirect record. Pending sends fail with it; they are
	// never replayed on the follow-up connection.
	ErrRedirected = errors.New("session: redirected")

	// ErrTransportFailed wraps a transport-reported failure.
	ErrTransportFailed = errors.New("session: transport failed")

	// ErrInvalidRole is returned for undefined role values.
	ErrInvalidRole = errors.New("session: invalid role")

	// ErrMissingKeyPair is returned when a session is configured without a
	// static key pair.
	ErrMissingKeyPair = errors.New("session: missing key pair")

	// ErrMissingRemoteKey is returned when an initiator session is
	// configured without the expected peer identity.
	ErrMissingRemoteKey = errors.New("session: missing remote public key")

	// ErrRedirectNotAllowed is returned when a redirect is attempted from
	// an initiator session.
	ErrRedirectNotAllowed = errors.New("session: only receivers may redirect")
)
