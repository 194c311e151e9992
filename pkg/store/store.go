// Package store persists the local static key pair and the peer
// directory. Implementations can use files, databases, or in-memory
// storage.
package store

import "github.com/backkem/seif/pkg/crypto"

// Acquaintance binds a locally chosen petname to a peer's address and
// public key.
type Acquaintance struct {
	Petname   string `json:"petname"`
	Address   string `json:"address"`
	PublicKey []byte `json:"publicKey"`
}

// Store abstracts persistent storage for Seif state.
//
// All methods must be safe for concurrent use. Lookups that find nothing
// return ErrNotFound.
type Store interface {
	// ReadKeyPair loads the static key pair.
	ReadKeyPair() (*crypto.KeyPair, error)

	// WriteKeyPair persists the static key pair.
	WriteKeyPair(kp *crypto.KeyPair) error

	// ReadAcquaintance looks a peer up by petname.
	ReadAcquaintance(petname string) (*Acquaintance, error)

	// AddAcquaintance upserts a peer by petname.
	AddAcquaintance(a *Acquaintance) error

	// RemoveAcquaintance deletes a peer by petname.
	RemoveAcquaintance(petname string) error

	// ListAcquaintances returns every known peer.
	ListAcquaintances() ([]*Acquaintance, error)
}
