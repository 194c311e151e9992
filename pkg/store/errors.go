package store

import "errors"

// Store errors.
var (
	// ErrNotFound is returned when a key pair or acquaintance does not
	// exist.
	ErrNotFound = errors.New("store: not found")

	// ErrWrongPassphrase is returned when the stored key pair cannot be
	// decrypted with the supplied passphrase.
	ErrWrongPassphrase = errors.New("store: wrong passphrase")

	// ErrNoPassphrase is returned when a file store is created without a
	// passphrase.
	ErrNoPassphrase = errors.New("store: passphrase required")
)
