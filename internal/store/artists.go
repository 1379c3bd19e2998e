package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ArtistStore handles artist metadata database operations.
type ArtistStore struct {
	db *sqlx.DB
}

// UpsertDetails creates or updates an artist and replaces its genre rows
// wholesale. Genres are never incrementally patched: every refresh deletes
// all rows for the artist and reinserts the current list. Runs in one
// transaction.
func (r *ArtistStore) UpsertDetails(ctx context.Context, id, name string, genres []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO artists (artist_id, name, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT (artist_id) DO UPDATE SET
			name = excluded.name,
			last_updated = excluded.last_updated
	`
	if _, err := tx.ExecContext(ctx, upsert, id, name, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("upserting artist: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artist_genres WHERE artist_id = ?`, id); err != nil {
		return fmt.Errorf("clearing artist genres: %w", err)
	}

	for _, genre := range genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artist_genres (artist_id, genre) VALUES (?, ?)`, id, genre); err != nil {
			return fmt.Errorf("inserting artist genre: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing artist details: %w", err)
	}
	return nil
}

// Get retrieves an artist by ID.
func (r *ArtistStore) Get(ctx context.Context, id string) (*Artist, error) {
	var artist Artist
	query := `SELECT artist_id, name, last_updated FROM artists WHERE artist_id = ?`
	err := r.db.GetContext(ctx, &artist, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist: %w", err)
	}
	return &artist, nil
}

// Genres returns the genre list for an artist. An empty list is valid.
func (r *ArtistStore) Genres(ctx context.Context, id string) ([]string, error) {
	var genres []string
	query := `SELECT genre FROM artist_genres WHERE artist_id = ? ORDER BY genre`
	if err := r.db.SelectContext(ctx, &genres, query, id); err != nil {
		return nil, fmt.Errorf("querying artist genres: %w", err)
	}
	return genres, nil
}
