package crypto

import "errors"

// Crypto primitive errors.
var (
	// ErrAuthFailed is returned when AES-GCM tag verification fails.
	// This is the sole source of integrity enforcement in the protocol.
	ErrAuthFailed = errors.New("crypto: message authentication failed")

	// ErrInvalidKeySize is returned for symmetric keys that are not 32 bytes.
	ErrInvalidKeySize = errors.New("crypto: invalid key size, must be 32 bytes")

	// ErrInvalidIVSize is returned for IVs that are not 12 bytes.
	ErrInvalidIVSize = errors.New("crypto: invalid IV size, must be 12 bytes")

	// ErrInvalidPublicKey is returned for malformed public keys.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidPrivateKey is returned for malformed private keys.
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")

	// ErrCiphertextTooShort is returned when an ECIES buffer cannot hold
	// the ephemeral public key and a GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrIVExhausted is returned when an IV counter reaches its safe bound.
	// The session must be torn down when this occurs.
	ErrIVExhausted = errors.New("crypto: IV counter exhausted")
)
