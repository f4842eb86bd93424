// Package storage provides the abstract key-value persistence layer with
// change notification. The engine never assumes a particular backend; a
// storage failure degrades to in-memory defaults and never blocks a decision.
package storage

import "errors"

// ErrUnavailable wraps backend failures so callers can branch on them and
// surface a non-blocking notice instead of failing the user's action.
var ErrUnavailable = errors.New("storage unavailable")

// Store is an abstract key-value store with change notification.
type Store interface {
	// Get returns the value for key, with found=false when absent.
	Get(key string) (value []byte, found bool, err error)
	// Set stores a value and notifies subscribers for the key.
	Set(key string, value []byte) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
	// Subscribe registers a callback invoked after each change to key.
	// The returned cancel func unregisters it.
	Subscribe(key string, fn func(value []byte)) (cancel func())
	// Close releases backend resources.
	Close() error
}
