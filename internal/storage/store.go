// Package storage handles all database operations for jobs, companies,
// routings and outbox events. All cross-entity atomicity lives in
// CreateJobWithRoutings; every other mutation is a single-row conditional
// update.
package storage

import (
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tradeengage/jobrouting/shared/postgresql"
)

// Store handles all database operations for the routing core.
type Store struct {
	db         *sqlx.DB
	logger     *slog.Logger
	maxRetries int
}

// Config holds store configuration.
type Config struct {
	// MaxRetries is snapshotted onto each routing at creation time and bounds
	// the failed -> processing transition.
	MaxRetries int
}

// NewStore creates a new Store instance backed by the shared PostgreSQL client.
func NewStore(pg *postgresql.Client, cfg Config, logger *slog.Logger) *Store {
	return NewStoreWithDB(pg.GetDB(), cfg, logger)
}

// NewStoreWithDB creates a Store over an existing sqlx handle. Used by tests.
func NewStoreWithDB(db *sqlx.DB, cfg Config, logger *slog.Logger) *Store {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Store{
		db:         db,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
	}
}

// now is a helper so timestamps inside one statement batch agree.
func now() time.Time {
	return time.Now().UTC()
}
