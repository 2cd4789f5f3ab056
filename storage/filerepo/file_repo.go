package filerepo

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ storage.Repo = (*FileRepo)(nil)

const saltLength = 16

// fileContents is the on-disk layout. Exactly one of Entries or Sealed is set.
type fileContents struct {
	Entries map[string]string `json:"entries,omitempty"`
	Sealed  *sealedEntries    `json:"sealed,omitempty"`
}

type sealedEntries struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// FileRepo persists entries as a JSON document on disk. The file is re-read on every access
// so several processes sharing a data folder observe each other's sessions.
// With a passphrase the entries are sealed with XChaCha20-Poly1305 under an Argon2id key.
type FileRepo struct {
	path       string
	passphrase []byte
	salt       []byte
	keySalt    []byte
	key        []byte
	lock       sync.Mutex
}

// New creates a file-backed repo at path. An empty passphrase stores entries in plain JSON.
func New(path, passphrase string) *FileRepo {
	r := &FileRepo{path: path}
	if passphrase != "" {
		r.passphrase = []byte(passphrase)
	}
	return r
}

func (r *FileRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, err := r.load()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (r *FileRepo) Set(_ context.Context, key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return r.save(entries)
}

func (r *FileRepo) Remove(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return r.save(entries)
}

// load reads the file. A missing, unreadable-as-JSON or undecryptable file is treated as empty.
func (r *FileRepo) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", errors.ErrStorage, r.path, err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("Discarding corrupt session file")
		return make(map[string]string), nil
	}

	if contents.Sealed == nil {
		if contents.Entries == nil {
			return make(map[string]string), nil
		}
		return contents.Entries, nil
	}

	entries, err := r.open(contents.Sealed)
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("Discarding unreadable sealed session file")
		return make(map[string]string), nil
	}
	return entries, nil
}

func (r *FileRepo) save(entries map[string]string) error {
	var contents fileContents
	if r.passphrase == nil {
		contents.Entries = entries
	} else {
		sealed, err := r.seal(entries)
		if err != nil {
			return err
		}
		contents.Sealed = sealed
	}

	data, err := json.Marshal(contents)
	if err != nil {
		return fmt.Errorf("%w: marshal entries: %w", errors.ErrStorage, err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("%w: create folder: %w", errors.ErrStorage, err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", errors.ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", errors.ErrStorage, r.path, err)
	}
	return nil
}

func (r *FileRepo) seal(entries map[string]string) (*sealedEntries, error) {
	if r.salt == nil {
		r.salt = make([]byte, saltLength)
		if _, err := rand.Read(r.salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	aead, err := chacha20poly1305.NewX(r.deriveKey(r.salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal entries: %w", errors.ErrStorage, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &sealedEntries{
		Salt:       r.salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

func (r *FileRepo) open(sealed *sealedEntries) (map[string]string, error) {
	if r.passphrase == nil {
		return nil, fmt.Errorf("%w: file is sealed but no passphrase is configured", errors.ErrCorruptRecord)
	}

	aead, err := chacha20poly1305.NewX(r.deriveKey(sealed.Salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(sealed.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length", errors.ErrCorruptRecord)
	}

	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrCorruptRecord, err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrCorruptRecord, err)
	}
	r.salt = sealed.Salt
	return entries, nil
}

// deriveKey returns the Argon2id key for salt, reusing the last derivation when the salt is unchanged
func (r *FileRepo) deriveKey(salt []byte) []byte {
	if r.key != nil && bytes.Equal(r.keySalt, salt) {
		return r.key
	}
	r.key = argon2.IDKey(r.passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	r.keySalt = salt
	return r.key
}
