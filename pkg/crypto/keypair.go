// Package crypto provides the cryptographic primitives of the Seif protocol:
// P-521 ECDH key pairs, AES-256-GCM, ECIES key wrapping and deterministic
// IV generation.
package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"fmt"
)

// P-521 constants for Seif Protocol Version 0.
const (
	// P521GroupSizeBytes is the size of a P-521 field element in bytes.
	P521GroupSizeBytes = 66

	// P521PublicKeySizeBytes is the uncompressed public key size.
	// Format: 0x04 || X (66 bytes) || Y (66 bytes) = 133 bytes
	P521PublicKeySizeBytes = 133
)

// KeyPair holds a static or ephemeral P-521 ECDH key pair. The private
// scalar stays inside the crypto/ecdh handle and is never exposed except
// through ExportPrivateKey.
type KeyPair struct {
	private *ecdh.PrivateKey
}

// GenerateKeyPair generates a new P-521 ECDH key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.P521().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate P-521 key: %w", err)
	}
	return &KeyPair{private: priv}, nil
}

// PublicKey returns the public half of the key pair.
func (kp *KeyPair) PublicKey() *ecdh.PublicKey {
	return kp.private.PublicKey()
}

// PublicKeyBytes returns the public key in uncompressed form (133 bytes).
// Format: 0x04 || X (66 bytes) || Y (66 bytes)
func (kp *KeyPair) PublicKeyBytes() []byte {
	return kp.private.PublicKey().Bytes()
}

// ECDH computes the shared secret between our private key and the peer's
// public key. Returns the 66-byte X coordinate of the shared point.
func (kp *KeyPair) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	secret, err := kp.private.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("ECDH computation failed: %w", err)
	}
	return secret, nil
}

// ImportPublicKey parses a 133-byte uncompressed P-521 public key.
func ImportPublicKey(raw []byte) (*ecdh.PublicKey, error) {
	if len(raw) != P521PublicKeySizeBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(raw), P521PublicKeySizeBytes)
	}
	if raw[0] != 0x04 {
		return nil, fmt.Errorf("%w: not in uncompressed form", ErrInvalidPublicKey)
	}
	pub, err := ecdh.P521().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// ExportPublicKey returns the 133-byte uncompressed form of a public key.
func ExportPublicKey(pub *ecdh.PublicKey) []byte {
	return pub.Bytes()
}

// ImportPrivateKey parses a PKCS#8 encoded P-521 private key.
// The input buffer is not retained; callers that hold sensitive material
// should zeroise it afterwards (see Memzero).
func ImportPrivateKey(pkcs8 []byte) (*KeyPair, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	ec, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an EC key", ErrInvalidPrivateKey)
	}
	priv, err := ec.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if priv.Curve() != ecdh.P521() {
		return nil, fmt.Errorf("%w: not a P-521 key", ErrInvalidPrivateKey)
	}
	return &KeyPair{private: priv}, nil
}

// ExportPrivateKey returns the PKCS#8 encoding of the private key.
func (kp *KeyPair) ExportPrivateKey() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.private)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return der, nil
}

// Memzero overwrites a buffer with zeros. Used to scrub key material once
// it is no longer needed.
func Memzero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
