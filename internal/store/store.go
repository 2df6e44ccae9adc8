// Package store persists tracks, the progress event log, schedules,
// achievements and LLM request events. Store is the SQLite backend; the
// postgres subpackage provides a server-backed alternative.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	"golang.org/x/mod/semver"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SchemaVersion is the version of the table layout written by this build.
// Databases from a newer major version are refused.
const SchemaVersion = "v1.0.0"

// Store is the SQLite Backend.
type Store struct {
	db  *sql.DB
	q   Queries
	seq *sequenceCounter
}

var _ Backend = (*Store)(nil)

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, q: NewQueries(dialect.SQLite), seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// TrackRepo returns a TrackRepo backed by this store.
func (s *Store) TrackRepo() TrackRepo { return &trackRepo{s: s} }

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo { return &eventRepo{s: s} }

// ScheduleRepo returns a ScheduleRepo backed by this store.
func (s *Store) ScheduleRepo() ScheduleRepo { return &scheduleRepo{s: s} }

// AchievementRepo returns an AchievementRepo backed by this store.
func (s *Store) AchievementRepo() AchievementRepo { return &achievementRepo{s: s} }

// LLMEventRepo returns an LLMEventRepo backed by this store.
func (s *Store) LLMEventRepo() LLMEventRepo { return &llmEventRepo{s: s} }

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		goal TEXT NOT NULL DEFAULT '',
		units TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS progress_events (
		sequence INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		track_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		lesson_id TEXT NOT NULL DEFAULT '',
		test_id TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		minutes INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL DEFAULT '',
		award_id TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS progress_events_track ON progress_events (track_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		track_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		track_id TEXT NOT NULL,
		id TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		required_value REAL NOT NULL,
		current_value REAL NOT NULL DEFAULT 0,
		is_completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (track_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		sequence INTEGER PRIMARY KEY,
		created_at INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var stored string
	err := db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'schema_version'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	default:
		if err := CheckSchemaVersion(stored); err != nil {
			return err
		}
		if semver.Compare(stored, SchemaVersion) >= 0 {
			return nil
		}
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO store_meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// CheckSchemaVersion returns ErrSchemaTooNew when stored belongs to a
// newer major version than SchemaVersion.
func CheckSchemaVersion(stored string) error {
	if !semver.IsValid(stored) {
		return fmt.Errorf("invalid schema version %q", stored)
	}
	if semver.Compare(semver.Major(stored), semver.Major(SchemaVersion)) > 0 {
		return fmt.Errorf("%w: database %s, supported %s", ErrSchemaTooNew, stored, SchemaVersion)
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. TRACKWISE_DB environment variable
// 2. $XDG_DATA_HOME/trackwise/trackwise.db
// 3. ~/.local/share/trackwise/trackwise.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TRACKWISE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "trackwise", "trackwise.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
