package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// StatsStore runs windowed aggregate queries over the listening history.
// All windows are inclusive on both ends.
type StatsStore struct {
	db *sqlx.DB
}

// TopArtist returns the name of the most-played artist in the window.
// Ties break on whichever group the query yields first. Returns "" when the
// window has no plays.
func (r *StatsStore) TopArtist(ctx context.Context, start, end time.Time) (string, error) {
	query := `
		SELECT a.name
		FROM plays AS p
		JOIN artists AS a ON p.artist_id = a.artist_id
		WHERE p.played_at_ms >= ?
			AND p.played_at_ms <= ?
		GROUP BY p.artist_id
		ORDER BY COUNT(*) DESC
		LIMIT 1
	`
	var name string
	err := r.db.GetContext(ctx, &name, query, start.UnixMilli(), end.UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying top artist: %w", err)
	}
	return name, nil
}

// TopGenre returns the most-played genre in the window. An artist with N
// genres contributes one play-count unit to each of them, so genre totals
// can exceed the total play count. Returns "" when the window has no plays.
func (r *StatsStore) TopGenre(ctx context.Context, start, end time.Time) (string, error) {
	query := `
		SELECT g.genre
		FROM plays AS p
		JOIN artist_genres AS g ON p.artist_id = g.artist_id
		WHERE p.played_at_ms >= ?
			AND p.played_at_ms <= ?
		GROUP BY g.genre
		ORDER BY COUNT(*) DESC
		LIMIT 1
	`
	var genre string
	err := r.db.GetContext(ctx, &genre, query, start.UnixMilli(), end.UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying top genre: %w", err)
	}
	return genre, nil
}

// TotalListeningTime returns overlap-aware listening time in milliseconds
// for the window. A play whose successor starts before it would naturally
// end is counted only up to that successor's start; the final play always
// counts its full duration.
func (r *StatsStore) TotalListeningTime(ctx context.Context, start, end time.Time) (int64, error) {
	query := `
		WITH ordered_history AS (
			SELECT
				played_at_ms,
				duration_ms,
				LEAD(played_at_ms) OVER (ORDER BY played_at_ms) AS next_played_at_ms
			FROM plays
			WHERE played_at_ms >= ? AND played_at_ms <= ?
		)
		SELECT COALESCE(SUM(
			CASE
				WHEN next_played_at_ms IS NOT NULL AND next_played_at_ms < played_at_ms + duration_ms
					THEN next_played_at_ms - played_at_ms
				ELSE duration_ms
			END
		), 0) AS total_listening_time
		FROM ordered_history
	`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, start.UnixMilli(), end.UnixMilli()); err != nil {
		return 0, fmt.Errorf("querying listening time: %w", err)
	}
	return total, nil
}
