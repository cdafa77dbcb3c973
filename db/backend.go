// Package db selects and constructs the credential-store backend named by
// configuration.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	rtssql "github.com/jacobpatterson1549/rts-masterserver/db/sql"
	"github.com/jacobpatterson1549/rts-masterserver/db/sql/postgres"
	"github.com/jacobpatterson1549/rts-masterserver/db/user"
	"github.com/jacobpatterson1549/rts-masterserver/db/user/memory"

	"github.com/jacobpatterson1549/rts-masterserver/db/firestore"
	"github.com/jacobpatterson1549/rts-masterserver/db/mongo"
)

// queryPeriod bounds how long any single database action may take.
const queryPeriod = 5 * time.Second

// Config names the credential-store backend and its connection parameters,
// matching config.DatabaseConfig.
type Config struct {
	Kind     string
	Host     string
	DBName   string
	User     string
	Password string
	Port     int
}

// NewBackend constructs the user.Backend named by cfg.Kind: postgres, mongo,
// firestore, or memory.
func NewBackend(ctx context.Context, cfg Config) (user.Backend, error) {
	switch cfg.Kind {
	case "postgres":
		return newPostgresBackend(cfg)
	case "mongo":
		return mongo.NewUserBackend(ctx, mongo.Config{QueryPeriod: queryPeriod}, mongoURL(cfg))
	case "firestore":
		return firestore.NewUserBackend(ctx, firestore.Config{QueryPeriod: queryPeriod}, cfg.DBName)
	case "memory":
		return memory.NewBackend(), nil
	default:
		return nil, fmt.Errorf("unknown database kind %q", cfg.Kind)
	}
}

func newPostgresBackend(cfg Config) (user.Backend, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.DBName, cfg.User, cfg.Password,
	)
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	database, err := rtssql.Config{QueryPeriod: queryPeriod}.NewDatabase(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("configuring postgres database: %w", err)
	}
	return &postgres.UserBackend{Database: database}, nil
}

func mongoURL(cfg Config) string {
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
}
