// Package handshake builds and validates the two records of the Seif
// session handshake.
//
// The initiator opens with a Hello record whose framing travels in the
// clear; the sensitive parts are ciphertexts embedded as buffers: the
// ephemeral handshake key is ECIES-wrapped under the receiver's static
// public key, and the hello data (the initiator's identity and an optional
// application value) is sealed under the handshake key. The receiver
// answers with an AuthHello record encrypted under the handshake key,
// carrying a fresh session key ECIES-wrapped under the initiator's public
// key. Both sides then adopt the session key and the handshake key is
// never used again.
package handshake

import (
	"crypto/ecdh"
	"encoding/json"
	"fmt"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/record"
)

// Version is the protocol version this package implements.
const Version = 0

// Field ids used inside handshake records.
const (
	fieldHandshakeKey   = "handshakeKey"
	fieldHelloData      = "helloData"
	fieldConnectionInfo = "connectionInfo"
	fieldSessionKey     = "sessionKey"
)

// helloData is the plaintext sealed under the handshake key inside Hello.
type helloData struct {
	InitiatorPublicKey string `json:"initiatorPublicKey"`
	Value              any    `json:"value,omitempty"`
}

// Hello is a validated inbound Hello record.
type Hello struct {
	// HandshakeKey is the unwrapped ephemeral AES-256 key.
	HandshakeKey []byte

	// InitiatorPublicKey is the initiator's static public key, learned
	// from the sealed hello data.
	InitiatorPublicKey *ecdh.PublicKey

	// Value is the application hello value, if any.
	Value any

	// ConnectionInfo is the cleartext connection info, if any.
	ConnectionInfo any
}

// BuildHello constructs the initiator's opening record.
//
// handshakeKey must be a fresh 32-byte AES key; encIV is the initiator's
// encryption IV generator, which the hello data seal advances by one.
func BuildHello(ourKey *crypto.KeyPair, receiverPub *ecdh.PublicKey, handshakeKey []byte, encIV *crypto.IVGenerator, helloValue, connectionInfo any) ([]byte, error) {
	wrappedKey, err := crypto.ECIESEncrypt(handshakeKey, receiverPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	data := helloData{
		InitiatorPublicKey: crypto.HexEncode(ourKey.PublicKeyBytes()),
		Value:              helloValue,
	}
	plain, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: hello data serialisation: %v", ErrHandshakeFailed, err)
	}

	iv, err := encIV.Next()
	if err != nil {
		return nil, err
	}
	sealed, err := crypto.AESGCMEncrypt(plain, handshakeKey, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	id := record.NewIdentifier(record.TypeHello)
	version := Version
	id.Version = &version

	msg := record.Message{
		fieldHandshakeKey: wrappedKey,
		fieldHelloData:    sealed,
	}
	if connectionInfo != nil {
		msg[fieldConnectionInfo] = connectionInfo
	}

	return record.Build(id, msg, record.Cleartext)
}

// ParseHello validates an inbound Hello record against our static key.
// decIV is the receiver's decryption IV generator; unsealing the hello
// data advances it by one.
func ParseHello(rec *record.Record, ourKey *crypto.KeyPair, decIV *crypto.IVGenerator) (*Hello, error) {
	if rec.Identifier.Type != record.TypeHello {
		return nil, fmt.Errorf("%w: got %q", ErrUnexpectedRecord, rec.Identifier.Type)
	}
	if rec.Identifier.Version == nil || *rec.Identifier.Version != Version {
		return nil, ErrUnsupportedVersion
	}

	wrappedKey, ok := rec.Message[fieldHandshakeKey].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: missing handshake key", ErrHandshakeFailed)
	}
	sealed, ok := rec.Message[fieldHelloData].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: missing hello data", ErrHandshakeFailed)
	}

	handshakeKey, err := crypto.ECIESDecrypt(wrappedKey, ourKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if len(handshakeKey) != crypto.SymmetricKeySize {
		return nil, fmt.Errorf("%w: handshake key has %d bytes", ErrHandshakeFailed, len(handshakeKey))
	}

	iv, err := decIV.Next()
	if err != nil {
		return nil, err
	}
	plain, err := crypto.AESGCMDecrypt(sealed, handshakeKey, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	var data helloData
	if err := json.Unmarshal(plain, &data); err != nil {
		return nil, fmt.Errorf("%w: hello data: %v", ErrHandshakeFailed, err)
	}

	rawPub, err := crypto.HexDecode(data.InitiatorPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: initiator public key: %v", ErrHandshakeFailed, err)
	}
	initiatorPub, err := crypto.ImportPublicKey(rawPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	return &Hello{
		HandshakeKey:       handshakeKey,
		InitiatorPublicKey: initiatorPub,
		Value:              data.Value,
		ConnectionInfo:     rec.Message[fieldConnectionInfo],
	}, nil
}

// BuildAuthHello constructs the receiver's answer. sessionKey is wrapped
// under the initiator's public key and the record itself is encrypted with
// the supplied handshake-key cipher.
func BuildAuthHello(initiatorPub *ecdh.PublicKey, sessionKey []byte, encrypt record.CryptFunc) ([]byte, error) {
	wrapped, err := crypto.ECIESEncrypt(sessionKey, initiatorPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	id := record.NewIdentifier(record.TypeAuthHello)
	return record.Build(id, record.Message{fieldSessionKey: wrapped}, encrypt)
}

// ParseAuthHello validates an inbound AuthHello record and unwraps the
// session key with our static private key.
func ParseAuthHello(rec *record.Record, ourKey *crypto.KeyPair) ([]byte, error) {
	if rec.Identifier.Type != record.TypeAuthHello {
		return nil, fmt.Errorf("%w: got %q", ErrUnexpectedRecord, rec.Identifier.Type)
	}

	wrapped, ok := rec.Message[fieldSessionKey].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: missing session key", ErrHandshakeFailed)
	}

	sessionKey, err := crypto.ECIESDecrypt(wrapped, ourKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if len(sessionKey) != crypto.SymmetricKeySize {
		return nil, fmt.Errorf("%w: session key has %d bytes", ErrHandshakeFailed, len(sessionKey))
	}

	return sessionKey, nil
}
