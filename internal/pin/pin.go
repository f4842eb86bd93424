// Package pin gates persistent overrides behind a user secret. Verification
// reveals success or failure only: salted digest, constant-time compare, no
// error detail that narrows the search space.
package pin

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/pageguard/internal/storage"
)

// ErrMismatch is returned for any failed verification.
var ErrMismatch = errors.New("secret verification failed")

const storageKey = "pin"

type record struct {
	Salt   []byte `json:"salt"`
	Digest []byte `json:"digest"`
}

// Verifier checks a user PIN against the stored salted digest.
type Verifier struct {
	backend storage.Store
}

// NewVerifier creates a Verifier over the given store.
func NewVerifier(backend storage.Store) *Verifier {
	return &Verifier{backend: backend}
}

// Set stores a new PIN, replacing any existing one.
func (v *Verifier) Set(pin string) error {
	if len(pin) < 4 {
		return fmt.Errorf("pin: must be at least 4 characters")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("pin: generate salt: %w", err)
	}
	rec := record{Salt: salt, Digest: digest(salt, pin)}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pin: marshal: %w", err)
	}
	if err := v.backend.Set(storageKey, data); err != nil {
		return fmt.Errorf("pin: persist: %w", err)
	}
	return nil
}

// Clear removes the stored PIN.
func (v *Verifier) Clear() error {
	return v.backend.Delete(storageKey)
}

// Required reports whether a PIN has been set.
func (v *Verifier) Required() bool {
	_, found, err := v.backend.Get(storageKey)
	return err == nil && found
}

// Verify checks the candidate PIN. When no PIN is set, verification
// succeeds — the override flow treats that as "no secret required".
func (v *Verifier) Verify(pin string) error {
	data, found, err := v.backend.Get(storageKey)
	if err != nil || !found {
		return nil
	}
	var rec record
	if json.Unmarshal(data, &rec) != nil {
		return ErrMismatch
	}
	if subtle.ConstantTimeCompare(digest(rec.Salt, pin), rec.Digest) != 1 {
		return ErrMismatch
	}
	return nil
}

func digest(salt []byte, pin string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(pin))
	return h.Sum(nil)
}
