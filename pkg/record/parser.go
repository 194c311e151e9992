package record

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/backkem/seif/pkg/crypto"
)

// parseState tracks what the parser is waiting for.
type parseState int

const (
	stateNeedLength parseState = iota
	stateNeedIdentifier
	stateNeedBlob
)

// Parser reassembles records from an unbounded incoming byte stream.
//
// The transport delivers opaque chunks with no framing; Feed appends them
// to an internal buffer and Next consumes complete elements as they become
// available. The decryption function in effect can only be changed at a
// record boundary, which is exactly when the session layer learns new keys.
//
// Parser is not safe for concurrent use; the owning session serialises
// access to it.
type Parser struct {
	buf   bytes.Buffer
	state parseState

	decrypt  CryptFunc
	overhead int // ciphertext expansion per element

	idLen   int
	id      *Identifier
	blobIdx int
	plains  [][]byte
}

// NewParser creates a parser in cleartext mode, suitable for a receiver
// awaiting the initial Hello record.
func NewParser() *Parser {
	return &Parser{decrypt: Cleartext}
}

// SetCipher switches the parser to decrypt every further element with fn.
// Wire lengths of identifier and blobs grow by the GCM tag from the next
// record on.
func (p *Parser) SetCipher(fn CryptFunc) {
	p.decrypt = fn
	p.overhead = crypto.GCMTagSize
}

// Feed appends an opaque chunk from the transport.
func (p *Parser) Feed(data []byte) {
	p.buf.Write(data)
}

// Buffered returns the number of undelivered bytes held by the parser.
func (p *Parser) Buffered() int {
	return p.buf.Len()
}

// Next returns the next complete record, or (nil, nil) when more bytes are
// required. Any returned error is fatal to the connection.
func (p *Parser) Next() (*Record, error) {
	for {
		switch p.state {
		case stateNeedLength:
			if p.buf.Len() < 2 {
				return nil, nil
			}
			var prefix [2]byte
			p.buf.Read(prefix[:])
			p.idLen = int(binary.BigEndian.Uint16(prefix[:]))
			p.state = stateNeedIdentifier

		case stateNeedIdentifier:
			if p.buf.Len() < p.idLen {
				return nil, nil
			}
			wire := make([]byte, p.idLen)
			p.buf.Read(wire)

			plain, err := p.decrypt(wire)
			if err != nil {
				return nil, err
			}
			id := &Identifier{}
			if err := json.Unmarshal(plain, id); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedIdentifier, err)
			}
			if !id.Type.IsValid() {
				return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, id.Type)
			}
			for _, b := range id.Blobs {
				if b.Length < 0 {
					return nil, ErrInvalidBlobLength
				}
				if !b.Type.IsValid() {
					return nil, fmt.Errorf("%w: blob %q has type %q", ErrMalformedIdentifier, b.ID, b.Type)
				}
			}

			p.id = id
			p.blobIdx = 0
			p.plains = make([][]byte, 0, len(id.Blobs))
			p.state = stateNeedBlob

		case stateNeedBlob:
			if p.blobIdx == len(p.id.Blobs) {
				rec, err := p.assemble()
				p.reset()
				if err != nil {
					return nil, err
				}
				return rec, nil
			}

			need := p.id.Blobs[p.blobIdx].Length + p.overhead
			if p.buf.Len() < need {
				return nil, nil
			}
			wire := make([]byte, need)
			p.buf.Read(wire)

			plain, err := p.decrypt(wire)
			if err != nil {
				return nil, err
			}
			if plain == nil {
				plain = []byte{}
			}
			p.plains = append(p.plains, plain)
			p.blobIdx++
		}
	}
}

// assemble rebuilds the payload message from the decrypted blobs.
func (p *Parser) assemble() (*Record, error) {
	msg := make(Message, len(p.id.Blobs))
	for i, info := range p.id.Blobs {
		switch info.Type {
		case BlobBuffer:
			msg[info.ID] = p.plains[i]
		case BlobJSON:
			var value any
			if err := json.Unmarshal(p.plains[i], &value); err != nil {
				return nil, fmt.Errorf("%w: blob %q: %v", ErrMalformedBlob, info.ID, err)
			}
			msg[info.ID] = value
		}
	}
	return &Record{Identifier: p.id, Message: msg}, nil
}

// reset prepares the parser for the next record.
func (p *Parser) reset() {
	p.state = stateNeedLength
	p.idLen = 0
	p.id = nil
	p.blobIdx = 0
	p.plains = nil
}
