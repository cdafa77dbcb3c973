package user

import (
	"context"
	"fmt"
)

// Dao drives the authenticate/register half of the handshake against a
// credential Backend and Hasher.
type Dao struct {
	backend Backend
	hasher  Hasher
}

// NewDao creates a Dao on the given backend and hasher.
func NewDao(backend Backend, hasher Hasher) (*Dao, error) {
	switch {
	case backend == nil:
		return nil, fmt.Errorf("creating user dao: backend required")
	case hasher == nil:
		return nil, fmt.Errorf("creating user dao: hasher required")
	}
	d := Dao{
		backend: backend,
		hasher:  hasher,
	}
	return &d, nil
}

// Register validates name/password, hashes the password, and inserts a new
// credential. Returns ErrNameTaken if name is already registered.
func (d *Dao) Register(ctx context.Context, name, password string) error {
	if err := Validate(name, password); err != nil {
		return err
	}
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	ok, err := d.backend.AddPlayer(ctx, Credential{Username: name, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("adding player: %w", err)
	}
	if !ok {
		return ErrNameTaken
	}
	return nil
}

// Authenticate fetches the stored credential for name and verifies password
// against it. An absent player and a wrong password both return
// ErrIncorrectLogin.
func (d *Dao) Authenticate(ctx context.Context, name, password string) error {
	c, err := d.backend.GetPlayer(ctx, name)
	if err != nil {
		return fmt.Errorf("fetching player: %w", err)
	}
	if c == nil {
		return ErrIncorrectLogin
	}
	ok, err := d.hasher.Verify(c.PasswordHash, password)
	if err != nil {
		return fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return ErrIncorrectLogin
	}
	return nil
}
