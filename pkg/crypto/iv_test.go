package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestIVGeneratorSequence(t *testing.T) {
	g := NewIVGenerator(FixedFieldInitiator)

	for i := uint64(0); i < 5; i++ {
		iv, err := g.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if len(iv) != GCMNonceSize {
			t.Fatalf("IV length = %d, want %d", len(iv), GCMNonceSize)
		}
		if got := binary.BigEndian.Uint32(iv[0:4]); got != 0 {
			t.Errorf("fixed field word = %d, want 0", got)
		}
		if got := binary.BigEndian.Uint64(iv[4:12]); got != i {
			t.Errorf("counter = %d, want %d", got, i)
		}
	}
}

func TestIVGeneratorFixedField(t *testing.T) {
	g := NewIVGenerator(FixedFieldReceiver)

	iv, err := g.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}

	want := []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(iv, want) {
		t.Errorf("IV = %x, want %x", iv, want)
	}
}

func TestIVGeneratorDisjointDirections(t *testing.T) {
	enc := NewIVGenerator(FixedFieldInitiator)
	dec := NewIVGenerator(FixedFieldReceiver)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		iv1, err := enc.Next()
		if err != nil {
			t.Fatalf("enc.Next() error: %v", err)
		}
		iv2, err := dec.Next()
		if err != nil {
			t.Fatalf("dec.Next() error: %v", err)
		}
		for _, iv := range [][]byte{iv1, iv2} {
			if seen[string(iv)] {
				t.Fatalf("duplicate IV %x", iv)
			}
			seen[string(iv)] = true
		}
	}
}

func TestIVGeneratorExhaustion(t *testing.T) {
	g := NewIVGeneratorWithLimit(FixedFieldInitiator, 5)

	for i := 0; i < 5; i++ {
		if _, err := g.Next(); err != nil {
			t.Fatalf("Next() %d error: %v", i, err)
		}
	}

	if _, err := g.Next(); !errors.Is(err, ErrIVExhausted) {
		t.Errorf("6th Next() error = %v, want ErrIVExhausted", err)
	}
}
