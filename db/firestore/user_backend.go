// Package firestore implements a user.Backend backed by Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jacobpatterson1549/rts-masterserver/db/user"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usernameField     = "username"
	passwordHashField = "password_hash"
)

// Config contains options for how the backend should run.
type Config struct {
	// QueryPeriod is the amount of time that any database action can take before it should timeout.
	QueryPeriod time.Duration
}

// UserBackend is a backend manager for a players collection.
type UserBackend struct {
	client *firestore.Client
	Config
}

func (ub *UserBackend) playersCollection() *firestore.CollectionRef {
	return ub.client.Collection("services").Doc("rts-masterserver").Collection("players")
}

// NewUserBackend creates a backend manager for players.
func NewUserBackend(ctx context.Context, cfg Config, projectID string) (*UserBackend, error) {
	ub := UserBackend{
		Config: cfg,
	}
	client, err := firestore.NewClient(ctx, projectID) // do not timeout context - the client is used by the backend
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	ub.client = client
	return &ub, nil
}

// withTimeoutContext configures the context to timeout when running the function.
func (ub *UserBackend) withTimeoutContext(ctx context.Context, f func(ctx context.Context) error) error {
	ctx, cancelFunc := context.WithTimeout(ctx, ub.QueryPeriod)
	defer cancelFunc()
	return f(ctx)
}

// GetPlayer fetches the stored credential for name. It returns (nil, nil) if
// no such player exists.
func (ub *UserBackend) GetPlayer(ctx context.Context, name string) (*user.Credential, error) {
	var doc struct {
		Username     string `firestore:"username"`
		PasswordHash []byte `firestore:"password_hash"`
	}
	notFound := false
	if err := ub.withTimeoutContext(ctx, func(ctx context.Context) error {
		players := ub.playersCollection()
		docRef := players.Doc(name)
		snapshot, err := docRef.Get(ctx)
		if err != nil {
			if snapshot != nil && !snapshot.Exists() {
				notFound = true
				return nil
			}
			return err
		}
		return snapshot.DataTo(&doc)
	}); err != nil {
		return nil, fmt.Errorf("reading player: %w", err)
	}
	if notFound {
		return nil, nil
	}
	return &user.Credential{Username: doc.Username, PasswordHash: doc.PasswordHash}, nil
}

// AddPlayer inserts a new credential. It returns false if name is already taken.
func (ub *UserBackend) AddPlayer(ctx context.Context, c user.Credential) (bool, error) {
	added := true
	if err := ub.withTimeoutContext(ctx, func(ctx context.Context) error {
		players := ub.playersCollection()
		docRef := players.Doc(c.Username)
		m := map[string]interface{}{
			usernameField:     c.Username,
			passwordHashField: c.PasswordHash,
		}
		_, err := docRef.Create(ctx, m) // returns an AlreadyExists error if player already exists
		if status.Code(err) == codes.AlreadyExists {
			added = false
			return nil
		}
		return err
	}); err != nil {
		return false, fmt.Errorf("adding player: %w", err)
	}
	return added, nil
}
