package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestECIESRoundtrip(t *testing.T) {
	recipient, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	plaintext := []byte("wrapped session key material")
	ct, err := ECIESEncrypt(plaintext, recipient.PublicKey())
	if err != nil {
		t.Fatalf("ECIESEncrypt() error: %v", err)
	}

	wantLen := P521PublicKeySizeBytes + len(plaintext) + GCMTagSize
	if len(ct) != wantLen {
		t.Errorf("ciphertext length = %d, want %d", len(ct), wantLen)
	}

	pt, err := ECIESDecrypt(ct, recipient)
	if err != nil {
		t.Fatalf("ECIESDecrypt() error: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Error("decrypted plaintext does not match")
	}
}

func TestECIESWrongRecipient(t *testing.T) {
	recipient, _ := GenerateKeyPair()
	other, _ := GenerateKeyPair()

	ct, err := ECIESEncrypt([]byte("secret"), recipient.PublicKey())
	if err != nil {
		t.Fatalf("ECIESEncrypt() error: %v", err)
	}

	if _, err := ECIESDecrypt(ct, other); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("ECIESDecrypt() with wrong key: error = %v, want ErrAuthFailed", err)
	}
}

func TestECIESTooShort(t *testing.T) {
	kp, _ := GenerateKeyPair()
	if _, err := ECIESDecrypt(make([]byte, P521PublicKeySizeBytes), kp); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("ECIESDecrypt() error = %v, want ErrCiphertextTooShort", err)
	}
}

func TestECIESEphemeralFreshness(t *testing.T) {
	recipient, _ := GenerateKeyPair()

	ct1, err := ECIESEncrypt([]byte("same plaintext"), recipient.PublicKey())
	if err != nil {
		t.Fatalf("ECIESEncrypt() error: %v", err)
	}
	ct2, err := ECIESEncrypt([]byte("same plaintext"), recipient.PublicKey())
	if err != nil {
		t.Fatalf("ECIESEncrypt() error: %v", err)
	}

	if bytes.Equal(ct1[:P521PublicKeySizeBytes], ct2[:P521PublicKeySizeBytes]) {
		t.Error("ephemeral public keys repeat across encryptions")
	}
}
