package record

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/backkem/seif/pkg/crypto"
)

// testCipher builds matched encrypt/decrypt CryptFuncs over a fresh key
// and a pair of IV generators, the way a session wires the codec.
func testCipher(t *testing.T) (CryptFunc, CryptFunc) {
	t.Helper()

	key, err := crypto.GenerateSymmetricKey()
	if err != nil {
		t.Fatalf("GenerateSymmetricKey() error: %v", err)
	}
	encIV := crypto.NewIVGenerator(crypto.FixedFieldInitiator)
	decIV := crypto.NewIVGenerator(crypto.FixedFieldInitiator)

	encrypt := func(plain []byte) ([]byte, error) {
		iv, err := encIV.Next()
		if err != nil {
			return nil, err
		}
		return crypto.AESGCMEncrypt(plain, key, iv)
	}
	decrypt := func(wire []byte) ([]byte, error) {
		iv, err := decIV.Next()
		if err != nil {
			return nil, err
		}
		return crypto.AESGCMDecrypt(wire, key, iv)
	}
	return encrypt, decrypt
}

func TestBuildParseCleartext(t *testing.T) {
	msg := Message{
		"greeting": "hi",
		"count":    float64(3),
		"raw":      []byte{3, 4, 5},
	}

	wire, err := Build(NewIdentifier(TypeHello), msg, Cleartext)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	p := NewParser()
	p.Feed(wire)
	rec, err := p.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if rec == nil {
		t.Fatal("Next() returned no record")
	}

	if rec.Identifier.Type != TypeHello {
		t.Errorf("type = %q, want %q", rec.Identifier.Type, TypeHello)
	}
	if got := rec.Message["greeting"]; got != "hi" {
		t.Errorf("greeting = %v, want hi", got)
	}
	if got := rec.Message["count"]; got != float64(3) {
		t.Errorf("count = %v, want 3", got)
	}
	if got, ok := rec.Message["raw"].([]byte); !ok || !bytes.Equal(got, []byte{3, 4, 5}) {
		t.Errorf("raw = %v, want [3 4 5]", rec.Message["raw"])
	}
}

func TestBuildParseEncrypted(t *testing.T) {
	encrypt, decrypt := testCipher(t)

	tests := []struct {
		name string
		msg  Message
	}{
		{"empty message", Message{}},
		{"json only", Message{"a": "x", "b": map[string]any{"n": float64(1)}}},
		{"buffer only", Message{"buf": []byte("payload")}},
		{"zero length buffer", Message{"empty": []byte{}}},
		{"mixed", Message{"buf": []byte{0xFF}, "n": float64(7), "s": "str"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := Build(NewIdentifier(TypeSend), tt.msg, encrypt)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}

			p := NewParser()
			p.SetCipher(decrypt)
			p.Feed(wire)
			rec, err := p.Next()
			if err != nil {
				t.Fatalf("Next() error: %v", err)
			}
			if rec == nil {
				t.Fatal("Next() returned no record")
			}

			if len(rec.Message) != len(tt.msg) {
				t.Fatalf("message has %d fields, want %d", len(rec.Message), len(tt.msg))
			}
			for k, want := range tt.msg {
				if !reflect.DeepEqual(rec.Message[k], want) {
					t.Errorf("field %q = %v, want %v", k, rec.Message[k], want)
				}
			}
		})
	}
}

func TestParseIncremental(t *testing.T) {
	encrypt, decrypt := testCipher(t)

	wire, err := Build(NewIdentifier(TypeSend), Message{"k": "v", "buf": []byte{1, 2, 3}}, encrypt)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	p := NewParser()
	p.SetCipher(decrypt)

	// Feed one byte at a time; the parser must not produce a record until
	// the final byte arrives.
	for i := 0; i < len(wire)-1; i++ {
		p.Feed(wire[i : i+1])
		rec, err := p.Next()
		if err != nil {
			t.Fatalf("byte %d: Next() error: %v", i, err)
		}
		if rec != nil {
			t.Fatalf("byte %d: record produced early", i)
		}
	}

	p.Feed(wire[len(wire)-1:])
	rec, err := p.Next()
	if err != nil {
		t.Fatalf("final Next() error: %v", err)
	}
	if rec == nil {
		t.Fatal("no record after full input")
	}
}

func TestParseBackToBackRecords(t *testing.T) {
	encrypt, decrypt := testCipher(t)

	var wire []byte
	for i := 0; i < 3; i++ {
		w, err := Build(NewIdentifier(TypeStatusSend), Message{"n": float64(i)}, encrypt)
		if err != nil {
			t.Fatalf("Build() %d error: %v", i, err)
		}
		wire = append(wire, w...)
	}

	p := NewParser()
	p.SetCipher(decrypt)
	p.Feed(wire)

	for i := 0; i < 3; i++ {
		rec, err := p.Next()
		if err != nil {
			t.Fatalf("Next() %d error: %v", i, err)
		}
		if rec == nil {
			t.Fatalf("Next() %d returned no record", i)
		}
		if got := rec.Message["n"]; got != float64(i) {
			t.Errorf("record %d: n = %v, want %d", i, got, i)
		}
	}

	if p.Buffered() != 0 {
		t.Errorf("parser left %d undelivered bytes", p.Buffered())
	}
}

func TestParseTamperedRecord(t *testing.T) {
	encrypt, decrypt := testCipher(t)

	wire, err := Build(NewIdentifier(TypeSend), Message{"k": "v"}, encrypt)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	// Flip one bit past the length prefix.
	wire[2] ^= 0x01

	p := NewParser()
	p.SetCipher(decrypt)
	p.Feed(wire)
	if _, err := p.Next(); !errors.Is(err, crypto.ErrAuthFailed) {
		t.Errorf("Next() error = %v, want ErrAuthFailed", err)
	}
}

func TestParseUnknownType(t *testing.T) {
	wire, err := Build(&Identifier{Type: "Bogus", Blobs: []BlobInfo{}}, Message{}, Cleartext)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	p := NewParser()
	p.Feed(wire)
	if _, err := p.Next(); !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("Next() error = %v, want ErrUnknownMessageType", err)
	}
}

func TestParseMalformedIdentifier(t *testing.T) {
	payload := []byte("{not json")
	wire := append([]byte{0, byte(len(payload))}, payload...)

	p := NewParser()
	p.Feed(wire)
	if _, err := p.Next(); !errors.Is(err, ErrMalformedIdentifier) {
		t.Errorf("Next() error = %v, want ErrMalformedIdentifier", err)
	}
}

func TestIdentifierSizeBoundary(t *testing.T) {
	// A cleartext identifier of exactly 65535 bytes is legal; one byte
	// more must fail. Identifier JSON overhead is constant, so pad with a
	// long field id carrying a zero-length buffer.
	base, err := Build(NewIdentifier(TypeSend), Message{"": []byte{}}, Cleartext)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	overhead := len(base) - 2 // serialised identifier with empty field id

	pad := MaxIdentifierSize - overhead
	exact := Message{strings.Repeat("a", pad): []byte{}}
	wire, err := Build(NewIdentifier(TypeSend), exact, Cleartext)
	if err != nil {
		t.Fatalf("Build() at 65535 error: %v", err)
	}
	if got := len(wire) - 2; got != MaxIdentifierSize {
		t.Fatalf("identifier length = %d, want %d", got, MaxIdentifierSize)
	}

	over := Message{strings.Repeat("a", pad+1): []byte{}}
	if _, err := Build(NewIdentifier(TypeSend), over, Cleartext); !errors.Is(err, ErrIdentifierTooBig) {
		t.Errorf("Build() at 65536 error = %v, want ErrIdentifierTooBig", err)
	}
}

func TestBuildSkipsNilFields(t *testing.T) {
	wire, err := Build(NewIdentifier(TypeSend), Message{"present": "x", "absent": nil}, Cleartext)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	p := NewParser()
	p.Feed(wire)
	rec, err := p.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if _, ok := rec.Message["absent"]; ok {
		t.Error("nil field was transmitted")
	}
	if rec.Message["present"] != "x" {
		t.Errorf("present = %v, want x", rec.Message["present"])
	}
}
