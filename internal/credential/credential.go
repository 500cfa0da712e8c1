// Package credential stores the WaniKani API key.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/five82/kanjidex/internal/storage"
)

// BlankMessage is shown when an empty key is submitted.
const BlankMessage = "Please enter an API key."

// ErrBlank is returned by Save for an empty key.
var ErrBlank = errors.New("blank api key")

// Store reads and writes the key under storage.KeyCredential.
type Store struct {
	kv storage.KV
}

// New returns a Store backed by kv.
func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Save trims and stores key.
func (s *Store) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrBlank
	}
	if err := s.kv.Set(storage.KeyCredential, []byte(key)); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load returns the stored key, or "" when none has been saved.
func (s *Store) Load() (string, error) {
	raw, err := s.kv.Get(storage.KeyCredential)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("load credential: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Clear removes the stored key. Clearing when nothing is stored is not an
// error.
func (s *Store) Clear() error {
	if err := s.kv.Delete(storage.KeyCredential); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", len(key)-4) + key[len(key)-4:]
}
