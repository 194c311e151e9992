// Package record implements the Seif record codec: building length-prefixed
// records of one identifier blob plus N payload blobs, and teasing complete
// records back out of an unbounded incoming byte stream.
//
// A record on the wire is:
//
//	uint16 identifier_length   (big-endian, always plaintext)
//	bytes  identifier          (ciphertext unless the record is a Hello)
//	bytes  blob_1 .. blob_N    (each ciphertext unless the record is a Hello)
//
// The identifier, once decrypted, is a UTF-8 JSON object naming the record
// type and describing each payload blob that follows.
package record

// Type names a record type as it appears in the identifier's "type" field.
type Type string

// Record types of Seif Protocol Version 0.
const (
	// TypeHello is the first handshake record, initiator to receiver.
	TypeHello Type = "Hello"

	// TypeAuthHello is the second handshake record, receiver to initiator.
	TypeAuthHello Type = "AuthHello"

	// TypeSend carries a user message that expects an acknowledgement.
	TypeSend Type = "Send"

	// TypeStatusSend carries a fire-and-forget user message.
	TypeStatusSend Type = "StatusSend"

	// TypeAcknowledge confirms delivery of the oldest outstanding Send.
	TypeAcknowledge Type = "Acknowledge"

	// TypeRedirect asks an initiator to re-establish against another peer.
	TypeRedirect Type = "Redirect"
)

// IsValid returns true if t is a defined record type.
func (t Type) IsValid() bool {
	switch t {
	case TypeHello, TypeAuthHello, TypeSend, TypeStatusSend, TypeAcknowledge, TypeRedirect:
		return true
	default:
		return false
	}
}

// BlobType describes how a payload blob's plaintext is interpreted.
type BlobType string

const (
	// BlobJSON marks a blob holding a UTF-8 JSON value.
	BlobJSON BlobType = "JSON"

	// BlobBuffer marks a blob holding raw bytes.
	BlobBuffer BlobType = "Buffer"
)

// IsValid returns true if b is a defined blob type.
func (b BlobType) IsValid() bool {
	return b == BlobJSON || b == BlobBuffer
}
