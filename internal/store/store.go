// Package store provides SQLite persistence for daylog: listening history,
// artist metadata, sync checkpoints, and daily entries.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	played_at_ms INTEGER PRIMARY KEY,
	track_id     TEXT NOT NULL,
	track_name   TEXT NOT NULL,
	artist_id    TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS artists (
	artist_id    TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS artist_genres (
	artist_id TEXT NOT NULL,
	genre     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artist_genres_artist ON artist_genres(artist_id);
CREATE INDEX IF NOT EXISTS idx_plays_artist ON plays(artist_id);

CREATE TABLE IF NOT EXISTS sync_state (
	source_id         TEXT PRIMARY KEY,
	last_synced_at_ms INTEGER NOT NULL,
	total_synced      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS daily_entries (
	day              TEXT PRIMARY KEY,
	mood             INTEGER,
	productivity     INTEGER,
	sleep_hours      REAL,
	sleep_start      TEXT,
	sleep_end        TEXT,
	exercise_minutes REAL,
	temp             REAL,
	conditions       TEXT,
	location         TEXT
);
`

// Store wraps a SQLite database handle.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the schema exists. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database visible to every caller.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Plays returns a PlayStore.
func (s *Store) Plays() *PlayStore {
	return &PlayStore{db: s.db}
}

// Artists returns an ArtistStore.
func (s *Store) Artists() *ArtistStore {
	return &ArtistStore{db: s.db}
}

// SyncState returns a SyncStateStore.
func (s *Store) SyncState() *SyncStateStore {
	return &SyncStateStore{db: s.db}
}

// Entries returns an EntryStore.
func (s *Store) Entries() *EntryStore {
	return &EntryStore{db: s.db}
}

// Stats returns a StatsStore.
func (s *Store) Stats() *StatsStore {
	return &StatsStore{db: s.db}
}
