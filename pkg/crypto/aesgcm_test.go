package crypto

import (
	"bytes"
	"errors"
	"testing"
)

var testIV = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}

func TestAESGCMRoundtrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("GenerateSymmetricKey() error: %v", err)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", nil},
		{"single byte", []byte{0x42}},
		{"text", []byte("hello seif")},
		{"binary", bytes.Repeat([]byte{0x00, 0xFF}, 512)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := AESGCMEncrypt(tt.plaintext, key, testIV)
			if err != nil {
				t.Fatalf("AESGCMEncrypt() error: %v", err)
			}
			if len(ct) != len(tt.plaintext)+GCMTagSize {
				t.Errorf("ciphertext length = %d, want %d", len(ct), len(tt.plaintext)+GCMTagSize)
			}

			pt, err := AESGCMDecrypt(ct, key, testIV)
			if err != nil {
				t.Fatalf("AESGCMDecrypt() error: %v", err)
			}
			if !bytes.Equal(pt, tt.plaintext) {
				t.Error("decrypted plaintext does not match")
			}
		})
	}
}

func TestAESGCMTamperDetection(t *testing.T) {
	key, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("GenerateSymmetricKey() error: %v", err)
	}

	ct, err := AESGCMEncrypt([]byte("payload"), key, testIV)
	if err != nil {
		t.Fatalf("AESGCMEncrypt() error: %v", err)
	}

	// Flipping any single bit must be detected.
	for i := range ct {
		tampered := make([]byte, len(ct))
		copy(tampered, ct)
		tampered[i] ^= 0x01

		if _, err := AESGCMDecrypt(tampered, key, testIV); !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("byte %d: AESGCMDecrypt() error = %v, want ErrAuthFailed", i, err)
		}
	}
}

func TestAESGCMWrongKey(t *testing.T) {
	k1, _ := GenerateSymmetricKey()
	k2, _ := GenerateSymmetricKey()

	ct, err := AESGCMEncrypt([]byte("payload"), k1, testIV)
	if err != nil {
		t.Fatalf("AESGCMEncrypt() error: %v", err)
	}

	if _, err := AESGCMDecrypt(ct, k2, testIV); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("AESGCMDecrypt() error = %v, want ErrAuthFailed", err)
	}
}

func TestAESGCMInvalidParams(t *testing.T) {
	if _, err := AESGCMEncrypt([]byte("x"), make([]byte, 16), testIV); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("short key: error = %v, want ErrInvalidKeySize", err)
	}
	if _, err := AESGCMEncrypt([]byte("x"), make([]byte, 32), make([]byte, 13)); !errors.Is(err, ErrInvalidIVSize) {
		t.Errorf("long IV: error = %v, want ErrInvalidIVSize", err)
	}
	if _, err := AESGCMDecrypt(make([]byte, 8), make([]byte, 32), testIV); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("truncated ciphertext: error = %v, want ErrAuthFailed", err)
	}
}
