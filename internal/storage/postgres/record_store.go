// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/percent-page-viewed/internal/clock"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable holds tracker records when no table is configured.
const DefaultTable = "tracker_records"

// RecordStoreConfig controls the Postgres connection pool used for tracker records.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type queryCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RecordStore keeps tracker records in a key/value table with an expiry
// column. It implements tracker.Storage for hosts without a cookie jar.
type RecordStore struct {
	pool  queryCloser
	table string
	clock clock.Clock
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig, clk clock.Clock) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewRecordStoreWithPool(pool, cfg.Table, clk)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool queryCloser, table string, clk clock.Clock) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{pool: pool, table: table, clock: clk}, nil
}

// EnsureSchema creates the record table when it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '/',
			expires_at TIMESTAMPTZ
		)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Get returns the live value for key.
func (s *RecordStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`
		SELECT value FROM %s
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`, s.table)
	var value string
	err := s.pool.QueryRow(ctx, query, key, s.clock.Now()).Scan(&value)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("select record: %w", err)
	}
	return value, true, nil
}

// Set upserts value for key. An expiry that already passed deletes the row.
func (s *RecordStore) Set(ctx context.Context, key, value string, opts tracker.SetOptions) error {
	if !opts.Expires.IsZero() && !opts.Expires.After(s.clock.Now()) {
		query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
		if _, err := s.pool.Exec(ctx, query, key); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		return nil
	}
	path := opts.Path
	if path == "" {
		path = tracker.RecordPath
	}
	var expires *time.Time
	if !opts.Expires.IsZero() {
		at := opts.Expires.UTC()
		expires = &at
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, path, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, path = EXCLUDED.path, expires_at = EXCLUDED.expires_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, key, value, path, expires); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// PurgeExpired removes rows whose expiry has passed and reports how many went.
func (s *RecordStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("purge expired records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the underlying pool.
func (s *RecordStore) Close() {
	s.pool.Close()
}
