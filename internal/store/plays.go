package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PlayStore handles listening-history database operations.
type PlayStore struct {
	db *sqlx.DB
}

// Insert adds a play. The insert is idempotent: a conflict on the play
// instant is a silent skip, reported via the returned bool.
func (r *PlayStore) Insert(ctx context.Context, play Play) (bool, error) {
	query := `
		INSERT INTO plays (played_at_ms, track_id, track_name, artist_id, duration_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (played_at_ms) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		play.PlayedAtMs,
		play.TrackID,
		play.TrackName,
		play.ArtistID,
		play.DurationMs,
	)
	if err != nil {
		return false, fmt.Errorf("inserting play: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}
	return n > 0, nil
}

// CountInWindow returns the number of plays in the inclusive window.
func (r *PlayStore) CountInWindow(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM plays WHERE played_at_ms BETWEEN ? AND ?`
	if err := r.db.GetContext(ctx, &count, query, start.UnixMilli(), end.UnixMilli()); err != nil {
		return 0, fmt.Errorf("counting plays: %w", err)
	}
	return count, nil
}

// RecentTracks returns plays in the inclusive window, newest first, capped
// at limit. Plays whose artist was never resolved get an empty artist name.
func (r *PlayStore) RecentTracks(ctx context.Context, start, end time.Time, limit int) ([]RecentTrack, error) {
	query := `
		SELECT p.track_name, COALESCE(a.name, '') AS artist_name, p.played_at_ms
		FROM plays AS p
		LEFT JOIN artists AS a ON p.artist_id = a.artist_id
		WHERE p.played_at_ms >= ?
			AND p.played_at_ms <= ?
		ORDER BY p.played_at_ms DESC
		LIMIT ?
	`
	var tracks []RecentTrack
	if err := r.db.SelectContext(ctx, &tracks, query, start.UnixMilli(), end.UnixMilli(), limit); err != nil {
		return nil, fmt.Errorf("querying recent tracks: %w", err)
	}
	return tracks, nil
}
