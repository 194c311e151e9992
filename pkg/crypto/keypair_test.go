package crypto

import (
	"bytes"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	raw := kp.PublicKeyBytes()
	if len(raw) != P521PublicKeySizeBytes {
		t.Errorf("public key length = %d, want %d", len(raw), P521PublicKeySizeBytes)
	}
	if raw[0] != 0x04 {
		t.Errorf("public key prefix = 0x%02x, want 0x04", raw[0])
	}
}

func TestPublicKeyRoundtrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	raw := kp.PublicKeyBytes()
	pub, err := ImportPublicKey(raw)
	if err != nil {
		t.Fatalf("ImportPublicKey() error: %v", err)
	}

	if !bytes.Equal(ExportPublicKey(pub), raw) {
		t.Error("exported public key does not match original")
	}
}

func TestImportPublicKeyInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"too short", make([]byte, 65)},
		{"wrong prefix", append([]byte{0x02}, make([]byte, 132)...)},
		{"not on curve", append([]byte{0x04}, bytes.Repeat([]byte{0xFF}, 132)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ImportPublicKey(tt.raw); err == nil {
				t.Error("ImportPublicKey() succeeded, want error")
			}
		})
	}
}

func TestPrivateKeyRoundtrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	der, err := kp.ExportPrivateKey()
	if err != nil {
		t.Fatalf("ExportPrivateKey() error: %v", err)
	}

	restored, err := ImportPrivateKey(der)
	if err != nil {
		t.Fatalf("ImportPrivateKey() error: %v", err)
	}

	if !bytes.Equal(restored.PublicKeyBytes(), kp.PublicKeyBytes()) {
		t.Error("restored key pair has different public key")
	}
}

func TestECDHAgreement(t *testing.T) {
	alice, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	bob, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	s1, err := alice.ECDH(bob.PublicKey())
	if err != nil {
		t.Fatalf("alice.ECDH() error: %v", err)
	}
	s2, err := bob.ECDH(alice.PublicKey())
	if err != nil {
		t.Fatalf("bob.ECDH() error: %v", err)
	}

	if !bytes.Equal(s1, s2) {
		t.Error("shared secrets differ")
	}
	if len(s1) != P521GroupSizeBytes {
		t.Errorf("shared secret length = %d, want %d", len(s1), P521GroupSizeBytes)
	}
}
