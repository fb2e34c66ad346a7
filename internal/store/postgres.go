// Package store is the Postgres-backed snapshot store: ingest of a
// completed harvest's staging file into immutable snapshot rows, and the
// browse/diff/history/catalog query engine read side.
package store

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed Repository. A single instance is shared by
// the harvest coordinator (writes) and the query API (reads); pgxpool
// hands out its own connection per concurrent caller.
type Store struct {
	db *pgxpool.Pool
}

// NewStore opens a connection pool against dbURL. Pool sizing is tunable
// via env vars so operators can match connection limits to their Postgres
// instance without a rebuild.
func NewStore(ctx context.Context, dbURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse db url: %w", err)
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MinConns = int32(n)
		}
	}
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	return &Store{db: pool}, nil
}

// Migrate executes the schema file at path. It is idempotent: every
// statement in schema.sql uses CREATE ... IF NOT EXISTS.
func (s *Store) Migrate(schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := s.db.Exec(context.Background(), string(content)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.db.Close()
}
