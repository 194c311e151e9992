package record

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
)

// MaxIdentifierSize is the largest serialised identifier that can be
// framed: the length prefix is 16 bits, so an identifier of exactly 65535
// bytes is legal and one byte more is not.
const MaxIdentifierSize = 1<<16 - 1

// CryptFunc transforms one plaintext element (identifier or blob) for the
// wire, or back. The session layer supplies AES-GCM closures over its key
// schedule; Cleartext is used for Hello records.
type CryptFunc func([]byte) ([]byte, error)

// Cleartext is the identity CryptFunc used for Hello records, whose
// framing travels unencrypted.
func Cleartext(b []byte) ([]byte, error) { return b, nil }

// Build serialises a record: it appends one BlobInfo per message field to
// the identifier, encrypts the identifier and every blob independently,
// and concatenates them behind the 2-byte length prefix.
//
// Message fields holding []byte become Buffer blobs; everything else is
// serialised as JSON. Nil fields are skipped. Keys are walked in sorted
// order.
func Build(id *Identifier, msg Message, encrypt CryptFunc) ([]byte, error) {
	keys := make([]string, 0, len(msg))
	for k := range msg {
		if msg[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	plains := make([][]byte, 0, len(keys))
	for _, k := range keys {
		plain, info, err := encodeBlob(k, msg[k])
		if err != nil {
			return nil, err
		}
		id.Blobs = append(id.Blobs, info)
		plains = append(plains, plain)
	}

	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("record: identifier serialisation failed: %w", err)
	}
	if len(idJSON) > MaxIdentifierSize {
		return nil, ErrIdentifierTooBig
	}

	encID, err := encrypt(idJSON)
	if err != nil {
		return nil, err
	}
	// The prefix frames the wire form, so the encrypted identifier must
	// still fit 16 bits.
	if len(encID) > MaxIdentifierSize {
		return nil, ErrIdentifierTooBig
	}

	size := 2 + len(encID)
	encBlobs := make([][]byte, len(plains))
	for i, plain := range plains {
		enc, err := encrypt(plain)
		if err != nil {
			return nil, err
		}
		encBlobs[i] = enc
		size += len(enc)
	}

	out := make([]byte, 2, size)
	binary.BigEndian.PutUint16(out, uint16(len(encID)))
	out = append(out, encID...)
	for _, enc := range encBlobs {
		out = append(out, enc...)
	}
	return out, nil
}

// encodeBlob serialises one message field and produces its descriptor.
func encodeBlob(id string, value any) ([]byte, BlobInfo, error) {
	if buf, ok := value.([]byte); ok {
		return buf, BlobInfo{ID: id, Type: BlobBuffer, Length: len(buf)}, nil
	}

	plain, err := json.Marshal(value)
	if err != nil {
		return nil, BlobInfo{}, fmt.Errorf("record: field %q not serialisable: %w", id, err)
	}
	return plain, BlobInfo{ID: id, Type: BlobJSON, Length: len(plain)}, nil
}
