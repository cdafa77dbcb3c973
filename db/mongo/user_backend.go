// Package mongo implements a user.Backend for MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/jacobpatterson1549/rts-masterserver/db/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	databaseName      = "rts-masterserver-db"
	collectionName    = "players"
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
	Players *mongo.Collection
	Config
}

// NewUserBackend creates a backend manager for the players collection.
func NewUserBackend(ctx context.Context, cfg Config, databaseURL string) (*UserBackend, error) {
	clientOptions := options.Client()
	clientOptions.ApplyURI(databaseURL)
	ctx, cancelFunc := context.WithTimeout(ctx, cfg.QueryPeriod)
	defer cancelFunc()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	database := client.Database(databaseName)
	players := database.Collection(collectionName)
	ub := UserBackend{
		Players: players,
		Config:  cfg,
	}
	return &ub, nil
}

// Setup creates a unique index on the username field.
func (ub *UserBackend) Setup(ctx context.Context) error {
	indexOptions := options.Index()
	indexOptions.SetUnique(true)
	document := d(e(usernameField, 1))
	model := mongo.IndexModel{
		Keys:    document,
		Options: indexOptions,
	}
	indexes := ub.Players.Indexes()
	ctx, cancelFunc := context.WithTimeout(ctx, ub.QueryPeriod)
	defer cancelFunc()
	_, err := indexes.CreateOne(ctx, model)
	if err != nil {
		return fmt.Errorf("creating unique username index: %w", err)
	}
	return nil
}

// GetPlayer fetches the stored credential for name. It returns (nil, nil) if
// no such player exists.
func (ub *UserBackend) GetPlayer(ctx context.Context, name string) (*user.Credential, error) {
	filter := d(e(usernameField, name))
	ctx, cancelFunc := context.WithTimeout(ctx, ub.QueryPeriod)
	defer cancelFunc()
	result := ub.Players.FindOne(ctx, filter)
	var doc struct {
		Username     string `bson:"username"`
		PasswordHash []byte `bson:"password_hash"`
	}
	if err := result.Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("reading player: %w", err)
	}
	return &user.Credential{Username: doc.Username, PasswordHash: doc.PasswordHash}, nil
}

// AddPlayer inserts a new credential. It returns false if name is already taken.
func (ub *UserBackend) AddPlayer(ctx context.Context, c user.Credential) (bool, error) {
	document := d(
		e(usernameField, c.Username),
		e(passwordHashField, c.PasswordHash),
	)
	ctx, cancelFunc := context.WithTimeout(ctx, ub.QueryPeriod)
	defer cancelFunc()
	if _, err := ub.Players.InsertOne(ctx, document); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("adding player: %w", err)
	}
	return true, nil
}

// d is a helper function to create bson.D elements.
func d(e ...bson.E) bson.D {
	return bson.D(e)
}

// e is a helper function to create bson.E elements.
func e(key string, value interface{}) bson.E {
	return bson.E{Key: key, Value: value}
}
