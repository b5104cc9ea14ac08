// Package db persists completed generation jobs to PostgreSQL. It is an
// optional collaborator: the pipeline records completed jobs here without
// waiting on or failing because of it.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS generated_sites (
	job_id         TEXT PRIMARY KEY,
	business_name  TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	slug           TEXT NOT NULL,
	site_url       TEXT NOT NULL,
	preview_url    TEXT NOT NULL DEFAULT '',
	custom_domain  TEXT NOT NULL DEFAULT '',
	quality_score  INTEGER NOT NULL DEFAULT 0,
	client_email   TEXT NOT NULL DEFAULT '',
	record         JSONB,
	deployment     JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ,
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS generated_sites_slug_idx ON generated_sites (slug);
CREATE INDEX IF NOT EXISTS generated_sites_created_at_idx ON generated_sites (created_at DESC);
`

// EnsureSchema creates the generated_sites table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
