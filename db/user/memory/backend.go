// Package memory implements an in-memory credential store, for tests and
// ephemeral/dev runs that have no database configured.
package memory

import (
	"context"
	"sync"

	"github.com/jacobpatterson1549/rts-masterserver/db/user"
)

// Backend is a mutex-guarded map implementing user.Backend.
type Backend struct {
	mu    sync.Mutex
	users map[string]user.Credential
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		users: make(map[string]user.Credential),
	}
}

// GetPlayer returns the stored credential for name, or (nil, nil) if absent.
func (b *Backend) GetPlayer(ctx context.Context, name string) (*user.Credential, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.users[name]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// AddPlayer inserts c, returning false if the username is already taken.
func (b *Backend) AddPlayer(ctx context.Context, c user.Credential) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[c.Username]; ok {
		return false, nil
	}
	b.users[c.Username] = c
	return true, nil
}
