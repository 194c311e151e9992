package crypto

import (
	"encoding/binary"
	"sync"
)

// Fixed field values for IV domain separation. The initiator uses
// FixedFieldInitiator for the records it originates and the receiver uses
// FixedFieldReceiver, so the two directions can never produce the same IV
// under a shared key.
const (
	FixedFieldInitiator byte = 0
	FixedFieldReceiver  byte = 1
)

// IVCounterMax is the safe bound on the IV counter. A generator refuses to
// produce IVs once its counter reaches this value.
const IVCounterMax uint64 = 1 << 53

// IVGenerator produces monotonically increasing 96-bit IVs for AES-GCM.
//
// Each IV is BE32(fixed field) || BE64(counter). The generator is reused
// across the handshake-key and session-key phases; every (key, IV) pair is
// still unique because the counter never repeats. Safe for concurrent use.
type IVGenerator struct {
	fixed   byte
	counter uint64
	limit   uint64
	mu      sync.Mutex
}

// NewIVGenerator creates a generator with the given fixed field and the
// default counter bound.
func NewIVGenerator(fixed byte) *IVGenerator {
	return &IVGenerator{fixed: fixed, limit: IVCounterMax}
}

// NewIVGeneratorWithLimit creates a generator with a reduced counter bound.
// Used in tests to exercise exhaustion.
func NewIVGeneratorWithLimit(fixed byte, limit uint64) *IVGenerator {
	return &IVGenerator{fixed: fixed, limit: limit}
}

// Next returns the next 12-byte IV and advances the counter.
// Returns ErrIVExhausted once the counter reaches the bound.
func (g *IVGenerator) Next() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.counter >= g.limit {
		return nil, ErrIVExhausted
	}

	iv := make([]byte, GCMNonceSize)
	binary.BigEndian.PutUint32(iv[0:4], uint32(g.fixed))
	binary.BigEndian.PutUint64(iv[4:12], g.counter)
	g.counter++

	return iv, nil
}

// Counter returns the current counter value without advancing it.
func (g *IVGenerator) Counter() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
