package store

import (
	"sync"

	"github.com/backkem/seif/pkg/crypto"
)

// MemoryStore is a Store kept entirely in memory. Used in tests and for
// throwaway identities.
type MemoryStore struct {
	mu            sync.Mutex
	keyPair       *crypto.KeyPair
	acquaintances map[string]*Acquaintance
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{acquaintances: make(map[string]*Acquaintance)}
}

func (s *MemoryStore) ReadKeyPair() (*crypto.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyPair == nil {
		return nil, ErrNotFound
	}
	return s.keyPair, nil
}

func (s *MemoryStore) WriteKeyPair(kp *crypto.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyPair = kp
	return nil
}

func (s *MemoryStore) ReadAcquaintance(petname string) (*Acquaintance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.acquaintances[petname]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) AddAcquaintance(a *Acquaintance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquaintances[a.Petname] = a
	return nil
}

func (s *MemoryStore) RemoveAcquaintance(petname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.acquaintances, petname)
	return nil
}

func (s *MemoryStore) ListAcquaintances() ([]*Acquaintance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Acquaintance, 0, len(s.acquaintances))
	for _, a := range s.acquaintances {
		out = append(out, a)
	}
	return out, nil
}
