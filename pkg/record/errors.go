package record

import "errors"

// Record codec errors. Parse errors are fatal to the connection that
// produced them.
var (
	// ErrIdentifierTooBig is returned at build time when a serialised
	// identifier cannot be framed behind a 16-bit length prefix.
	ErrIdentifierTooBig = errors.New("record: identifier too big")

	// ErrMalformedIdentifier is returned when an identifier does not parse
	// as the expected JSON object.
	ErrMalformedIdentifier = errors.New("record: malformed identifier")

	// ErrUnknownMessageType is returned for identifiers naming a record
	// type this version does not define.
	ErrUnknownMessageType = errors.New("record: unknown message type")

	// ErrMalformedBlob is returned when a blob's plaintext does not match
	// its declared type.
	ErrMalformedBlob = errors.New("record: malformed blob")

	// ErrInvalidBlobLength is returned for blob descriptors with negative
	// lengths.
	ErrInvalidBlobLength = errors.New("record: invalid blob length")
)
