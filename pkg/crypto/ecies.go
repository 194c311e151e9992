package crypto

import (
	"crypto/ecdh"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ECIES key derivation info string.
var eciesInfo = []byte("seif-ecies-v0")

// eciesZeroIV is the constant all-zero IV used for the single GCM
// operation under an ECIES-derived key. Safe because each derived key is
// used exactly once.
var eciesZeroIV = make([]byte, GCMNonceSize)

// ECIESEncrypt encrypts plaintext to the holder of recipientPub.
//
// An ephemeral P-521 key pair is generated, a 32-byte AES key is derived
// from ECDH(ephemeral, recipient) via HKDF-SHA256, and the plaintext is
// sealed under AES-256-GCM with a zero IV. The output is
// ephemeral_pub(133) || ciphertext, so its length is always
// 133 + len(plaintext) + 16.
func ECIESEncrypt(plaintext []byte, recipientPub *ecdh.PublicKey) ([]byte, error) {
	ephemeral, err := GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("ECIES ephemeral keygen failed: %w", err)
	}

	key, err := eciesDeriveKey(ephemeral, recipientPub)
	if err != nil {
		return nil, err
	}
	defer Memzero(key)

	ciphertext, err := AESGCMEncrypt(plaintext, key, eciesZeroIV)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, P521PublicKeySizeBytes+len(ciphertext))
	out = append(out, ephemeral.PublicKeyBytes()...)
	out = append(out, ciphertext...)
	return out, nil
}

// ECIESDecrypt reverses ECIESEncrypt using our static private key.
// Returns ErrAuthFailed when the embedded GCM tag does not verify.
func ECIESDecrypt(buf []byte, ourKey *KeyPair) ([]byte, error) {
	if len(buf) < P521PublicKeySizeBytes+GCMTagSize {
		return nil, ErrCiphertextTooShort
	}

	ephemeralPub, err := ImportPublicKey(buf[:P521PublicKeySizeBytes])
	if err != nil {
		return nil, err
	}

	key, err := eciesDeriveKey(ourKey, ephemeralPub)
	if err != nil {
		return nil, err
	}
	defer Memzero(key)

	return AESGCMDecrypt(buf[P521PublicKeySizeBytes:], key, eciesZeroIV)
}

// eciesDeriveKey derives the one-shot AES-256 key from an ECDH shared
// secret using HKDF-SHA256 with no salt.
func eciesDeriveKey(kp *KeyPair, peer *ecdh.PublicKey) ([]byte, error) {
	secret, err := kp.ECDH(peer)
	if err != nil {
		return nil, err
	}
	defer Memzero(secret)

	key := make([]byte, SymmetricKeySize)
	reader := hkdf.New(sha256.New, secret, nil, eciesInfo)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("ECIES key derivation failed: %w", err)
	}
	return key, nil
}
