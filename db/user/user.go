// Package user manages player credentials for the login/register handshake.
package user

import (
	"context"
	"errors"
	"fmt"
)

// Credential is a stored username/password-hash pair.
type Credential struct {
	Username     string
	PasswordHash []byte
}

// Backend is the credential store: a persistent player table supporting
// lookup by username and insertion of new username/password-hash pairs.
type Backend interface {
	// GetPlayer fetches the stored credential for name.
	// It returns (nil, nil) if no such player exists.
	GetPlayer(ctx context.Context, name string) (*Credential, error)
	// AddPlayer inserts a new credential. It returns false if name is already taken.
	AddPlayer(ctx context.Context, c Credential) (bool, error)
}

// Hasher computes and checks password digests.
type Hasher interface {
	// Hash computes the digest for a plaintext password.
	Hash(password string) ([]byte, error)
	// Verify reports whether password matches the supplied digest.
	Verify(hash []byte, password string) (bool, error)
}

// ErrIncorrectLogin is returned when a login attempt fails, whether because
// the player does not exist or because the password is wrong. The two cases
// are deliberately indistinguishable to callers.
var ErrIncorrectLogin = errors.New("incorrect username/password")

// ErrNameTaken is returned by Register when the username is already in use.
var ErrNameTaken = errors.New("name taken")

// Validate checks that a username/password pair submitted during the
// handshake meets the server's policy.
func Validate(username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateUsername(username string) error {
	switch {
	case len(username) < 1:
		return fmt.Errorf("username required")
	case len(username) > 32:
		return fmt.Errorf("username must be at most 32 characters long")
	}
	for _, r := range username {
		if r < 'a' || r > 'z' {
			return fmt.Errorf("username must be made of only lowercase letters")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	return nil
}
