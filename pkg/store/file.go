package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/backkem/seif/pkg/crypto"
)

// Key-wrapping parameters for the at-rest private key.
const (
	// pbkdf2Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	pbkdf2Iterations = 100000

	// saltSize is the random salt length in bytes.
	saltSize = 16

	keyPairFile       = "keypair.seif"
	acquaintancesFile = "acquaintances.json"
)

// FileStore keeps state in a directory: the key pair as PKCS#8 encrypted
// under a passphrase-derived AES-256 key, acquaintances as JSON.
type FileStore struct {
	dir        string
	passphrase []byte
	mu         sync.Mutex
}

// NewFileStore opens (creating if needed) a store rooted at dir. The
// passphrase encrypts the private key at rest.
func NewFileStore(dir, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir, passphrase: []byte(passphrase)}, nil
}

// ReadKeyPair loads and decrypts the static key pair.
func (s *FileStore) ReadKeyPair() (*crypto.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, keyPairFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(blob) < saltSize+crypto.GCMNonceSize+crypto.GCMTagSize {
		return nil, ErrWrongPassphrase
	}

	salt := blob[:saltSize]
	iv := blob[saltSize : saltSize+crypto.GCMNonceSize]
	ciphertext := blob[saltSize+crypto.GCMNonceSize:]

	key := s.deriveKey(salt)
	defer crypto.Memzero(key)

	pkcs8, err := crypto.AESGCMDecrypt(ciphertext, key, iv)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	defer crypto.Memzero(pkcs8)

	return crypto.ImportPrivateKey(pkcs8)
}

// WriteKeyPair encrypts and persists the static key pair.
func (s *FileStore) WriteKeyPair(kp *crypto.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkcs8, err := kp.ExportPrivateKey()
	if err != nil {
		return err
	}
	defer crypto.Memzero(pkcs8)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	iv := make([]byte, crypto.GCMNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return err
	}

	key := s.deriveKey(salt)
	defer crypto.Memzero(key)

	ciphertext, err := crypto.AESGCMEncrypt(pkcs8, key, iv)
	if err != nil {
		return err
	}

	blob := make([]byte, 0, len(salt)+len(iv)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, ciphertext...)

	return writeFileAtomic(filepath.Join(s.dir, keyPairFile), blob, 0o600)
}

// ReadAcquaintance looks a peer up by petname.
func (s *FileStore) ReadAcquaintance(petname string) (*Acquaintance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAcquaintances()
	if err != nil {
		return nil, err
	}
	a, ok := all[petname]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// AddAcquaintance upserts a peer by petname.
func (s *FileStore) AddAcquaintance(a *Acquaintance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAcquaintances()
	if err != nil {
		return err
	}
	all[a.Petname] = a
	return s.saveAcquaintances(all)
}

// RemoveAcquaintance deletes a peer by petname.
func (s *FileStore) RemoveAcquaintance(petname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAcquaintances()
	if err != nil {
		return err
	}
	delete(all, petname)
	return s.saveAcquaintances(all)
}

// ListAcquaintances returns every known peer.
func (s *FileStore) ListAcquaintances() ([]*Acquaintance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAcquaintances()
	if err != nil {
		return nil, err
	}
	out := make([]*Acquaintance, 0, len(all))
	for _, a := range all {
		out = append(out, a)
	}
	return out, nil
}

func (s *FileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(s.passphrase, salt, pbkdf2Iterations, crypto.SymmetricKeySize, sha256.New)
}

func (s *FileStore) loadAcquaintances() (map[string]*Acquaintance, error) {
	blob, err := os.ReadFile(filepath.Join(s.dir, acquaintancesFile))
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]*Acquaintance), nil
	}
	if err != nil {
		return nil, err
	}

	all := make(map[string]*Acquaintance)
	if err := json.Unmarshal(blob, &all); err != nil {
		return nil, fmt.Errorf("store: acquaintances corrupt: %w", err)
	}
	return all, nil
}

func (s *FileStore) saveAcquaintances(all map[string]*Acquaintance) error {
	blob, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, acquaintancesFile), blob, 0o600)
}

// writeFileAtomic writes via a temp file and rename so a crash never
// leaves a half-written store.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
