// Package sql implements a SQL database.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

type (
	// Query is a command that can be executed against the database.
	Query interface {
		// Cmd returns the SQL to run.
		Cmd() string
		// Args returns the arguments referenced by the SQL's placeholders.
		Args() []interface{}
	}

	// Database is a SQL database with additional configuration.
	Database struct {
		*sql.DB
		Config
	}

	// Config contains options for how the database should run.
	Config struct {
		// QueryPeriod is the amount of time that any database action can take before it should timeout.
		QueryPeriod time.Duration
	}
)

// ErrNoRows is returned by Query when no row matched.
var ErrNoRows = sql.ErrNoRows

// NewDatabase creates a SQL database from the database.
func (cfg Config) NewDatabase(db *sql.DB) (Database, error) {
	if err := cfg.validate(db); err != nil {
		return Database{}, fmt.Errorf("creating database: validation: %w", err)
	}
	sDB := Database{
		DB:     db,
		Config: cfg,
	}
	return sDB, nil
}

// validate ensures the configuration and parameters have no errors.
func (cfg Config) validate(db *sql.DB) error {
	switch {
	case db == nil:
		return fmt.Errorf("database required")
	case cfg.QueryPeriod <= 0:
		return fmt.Errorf("positive idle period required")
	}
	return nil
}

// Setup initializes the database by reading the files and executing their contents as raw queries.
func (s Database) Setup(ctx context.Context, files []io.Reader) error {
	ctx, cancelFunc := context.WithTimeout(ctx, s.QueryPeriod)
	defer cancelFunc()
	queries := make([]Query, len(files))
	for i, f := range files {
		b, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("reading sql setup query %v: %w", i, err)
		}
		queries[i] = RawQuery(string(b))
	}
	if err := s.Exec(ctx, queries...); err != nil {
		return fmt.Errorf("running setup queries %w", err)
	}
	return nil
}

// Query runs q and scans the single resulting row into dest.
func (s Database) Query(ctx context.Context, q Query, dest ...interface{}) error {
	ctx, cancelFunc := context.WithTimeout(ctx, s.QueryPeriod)
	defer cancelFunc()
	row := s.DB.QueryRowContext(ctx, q.Cmd(), q.Args()...)
	return row.Scan(dest...)
}

// Exec evaluates multiple queries in a transaction, ensuring each ExecFunction one only updates one row.
func (s Database) Exec(ctx context.Context, queries ...Query) error {
	ctx, cancelFunc := context.WithTimeout(ctx, s.QueryPeriod)
	defer cancelFunc()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	for i, q := range queries {
		result, err := tx.ExecContext(ctx, q.Cmd(), q.Args()...)
		if f, ok := q.(ExecFunction); err == nil && ok {
			var n int64
			n, err = result.RowsAffected()
			if err == nil && n != 1 {
				err = fmt.Errorf("wanted to update 1 row, but updated %d when calling %s", n, f.name)
			}
		}
		if err != nil {
			err = fmt.Errorf("executing query %v: %w", i, err)
			err2 := tx.Rollback()
			if err2 != nil {
				return fmt.Errorf("rolling back transaction due to %v: %w", err, err2)
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
