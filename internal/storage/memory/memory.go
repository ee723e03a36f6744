// Package memory provides a process-local snapshot repository.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/xenking/kart-session/internal/domain/cart"
)

var _ cart.Repository = (*Repository)(nil)

// Repository keeps snapshots in a map. Contents do not survive restarts.
type Repository struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// New returns an empty Repository.
func New() *Repository {
	return &Repository{slots: make(map[string][]byte)}
}

// Load returns a copy of the bytes stored under key.
func (r *Repository) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.slots[key]
	if !ok {
		return nil, cart.ErrSnapshotNotFound
	}
	return bytes.Clone(data), nil
}

// Save stores a copy of data under key.
func (r *Repository) Save(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[key] = bytes.Clone(data)
	return nil
}

// Len returns the number of stored slots.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.slots)
}
