// Package postgres implements store.Backend on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/mod/semver"

	"github.com/abhisek/trackwise/internal/store"
)

// Backend is a PostgreSQL store.Backend.
type Backend struct {
	pool *pgxpool.Pool
	q    store.Queries
}

var _ store.Backend = (*Backend)(nil)

// Open connects to databaseURL, verifies the connection and creates
// missing tables.
func Open(ctx context.Context, databaseURL string) (*Backend, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database URL: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}

	b := &Backend{pool: pool, q: store.NewQueries(dialect.Postgres)}
	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

func (b *Backend) TrackRepo() store.TrackRepo             { return &trackRepo{b: b} }
func (b *Backend) EventRepo() store.EventRepo             { return &eventRepo{b: b} }
func (b *Backend) ScheduleRepo() store.ScheduleRepo       { return &scheduleRepo{b: b} }
func (b *Backend) AchievementRepo() store.AchievementRepo { return &achievementRepo{b: b} }
func (b *Backend) LLMEventRepo() store.LLMEventRepo       { return &llmEventRepo{b: b} }

// querier is implemented by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (b *Backend) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (b *Backend) nextSequence(ctx context.Context, q querier) (int64, error) {
	var seq int64
	if err := q.QueryRow(ctx, `SELECT nextval('global_sequence')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

const schema = `
CREATE SEQUENCE IF NOT EXISTS global_sequence;

CREATE TABLE IF NOT EXISTS store_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tracks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    goal TEXT NOT NULL DEFAULT '',
    units TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS progress_events (
    sequence BIGINT PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    track_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    lesson_id TEXT NOT NULL DEFAULT '',
    test_id TEXT NOT NULL DEFAULT '',
    score DOUBLE PRECISION NOT NULL DEFAULT 0,
    minutes INTEGER NOT NULL DEFAULT 0,
    tier TEXT NOT NULL DEFAULT '',
    award_id TEXT NOT NULL DEFAULT '',
    occurred_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS progress_events_track ON progress_events (track_id, sequence);

CREATE TABLE IF NOT EXISTS schedules (
    track_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    generated_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS achievements (
    track_id TEXT NOT NULL,
    id TEXT NOT NULL,
    category TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    required_value DOUBLE PRECISION NOT NULL,
    current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_completed INTEGER NOT NULL DEFAULT 0,
    completed_at BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (track_id, id)
);

CREATE TABLE IF NOT EXISTS llm_request_events (
    sequence BIGINT PRIMARY KEY,
    created_at BIGINT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    purpose TEXT NOT NULL,
    input_tokens BIGINT NOT NULL DEFAULT 0,
    output_tokens BIGINT NOT NULL DEFAULT 0,
    latency_ms BIGINT NOT NULL DEFAULT 0,
    success INTEGER NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    request_body TEXT NOT NULL DEFAULT '',
    response_body TEXT NOT NULL DEFAULT ''
);
`

func (b *Backend) migrate(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}

	var stored string
	err := b.pool.QueryRow(ctx, `SELECT value FROM store_meta WHERE key = 'schema_version'`).Scan(&stored)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("postgres: read schema version: %w", err)
	default:
		if err := store.CheckSchemaVersion(stored); err != nil {
			return err
		}
		if semver.Compare(stored, store.SchemaVersion) >= 0 {
			return nil
		}
	}

	_, err = b.pool.Exec(ctx,
		`INSERT INTO store_meta (key, value) VALUES ('schema_version', $1)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		store.SchemaVersion)
	if err != nil {
		return fmt.Errorf("postgres: write schema version: %w", err)
	}
	return nil
}
