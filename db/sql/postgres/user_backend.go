// Package postgres implements a user.Backend for Postgres servers.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jacobpatterson1549/rts-masterserver/db/sql"
	"github.com/jacobpatterson1549/rts-masterserver/db/user"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique-key violation.
const uniqueViolation = "23505"

type (
	// UserBackend manages player credentials on a Postgres SQL Database.
	UserBackend struct {
		Database
	}
	// Database contains methods to read and change data.
	Database interface {
		// Setup initializes the database by reading the files.
		Setup(ctx context.Context, files []io.Reader) error
		// Query reads from the database without updating it.
		Query(ctx context.Context, q sql.Query, dest ...interface{}) error
		// Exec makes a change to existing data, creating/modifying it.
		Exec(ctx context.Context, queries ...sql.Query) error
	}
)

// GetPlayer fetches the stored credential for name. It returns (nil, nil) if
// no such player exists.
func (ub *UserBackend) GetPlayer(ctx context.Context, name string) (*user.Credential, error) {
	cols := []string{
		"username",
		"password_hash",
	}
	q := sql.NewQueryFunction("player_get", cols, name)
	var c user.Credential
	if err := ub.Database.Query(ctx, q, &c.Username, &c.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return &c, nil
}

// AddPlayer inserts a new credential. It returns false if name is already taken.
func (ub *UserBackend) AddPlayer(ctx context.Context, c user.Credential) (bool, error) {
	q := sql.NewExecFunction("player_add", c.Username, c.PasswordHash)
	if err := ub.Database.Exec(ctx, q); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("adding player: %w", err)
	}
	return true, nil
}
