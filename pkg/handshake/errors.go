package handshake

import "errors"

// Handshake errors. All of them are fatal to the connection they occur on.
var (
	// ErrHandshakeFailed covers any crypto failure or malformed record
	// before the session is open.
	ErrHandshakeFailed = errors.New("handshake: failed")

	// ErrUnsupportedVersion is returned for Hello records whose version
	// field is not 0.
	ErrUnsupportedVersion = errors.New("handshake: unsupported protocol version")

	// ErrUnexpectedRecord is returned when a record of the wrong type
	// arrives during the handshake.
	ErrUnexpectedRecord = errors.New("handshake: unexpected record type")
)
