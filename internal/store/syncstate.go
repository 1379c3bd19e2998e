package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SyncStateStore persists the incremental-sync checkpoint per source.
type SyncStateStore struct {
	db *sqlx.DB
}

// Get returns the checkpoint for a source. A source that has never synced
// gets a zero state, not an error.
func (s *SyncStateStore) Get(ctx context.Context, sourceID string) (*SyncState, error) {
	var state SyncState
	query := `
		SELECT source_id, last_synced_at_ms, total_synced
		FROM sync_state
		WHERE source_id = ?
	`
	err := s.db.GetContext(ctx, &state, query, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return &SyncState{SourceID: sourceID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying sync state: %w", err)
	}
	return &state, nil
}

// Update upserts the checkpoint for a source.
func (s *SyncStateStore) Update(ctx context.Context, state *SyncState) error {
	query := `
		INSERT INTO sync_state (source_id, last_synced_at_ms, total_synced)
		VALUES (?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			last_synced_at_ms = excluded.last_synced_at_ms,
			total_synced = excluded.total_synced
	`
	_, err := s.db.ExecContext(ctx, query, state.SourceID, state.LastSyncedAtMs, state.TotalSynced)
	if err != nil {
		return fmt.Errorf("updating sync state: %w", err)
	}
	return nil
}
