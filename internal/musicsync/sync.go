// Package musicsync incrementally pulls listening history from a streaming
// source into the local store.
package musicsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evanjr/daylog/internal/spotify"
	"github.com/evanjr/daylog/internal/store"
)

// ErrSyncInProgress is returned when a sync is requested while another one is
// still running.
var ErrSyncInProgress = errors.New("sync already in progress")

// SourceID keys the persisted checkpoint for the Spotify source.
const SourceID = "spotify"

// Source fetches listening history and artist metadata.
type Source interface {
	RecentlyPlayedAfter(ctx context.Context, after time.Time, limit int) ([]spotify.Play, error)
	ArtistDetails(ctx context.Context, id string) (*spotify.ArtistDetails, error)
}

// PlayStore persists plays.
type PlayStore interface {
	Insert(ctx context.Context, play store.Play) (bool, error)
}

// ArtistStore persists artist metadata.
type ArtistStore interface {
	UpsertDetails(ctx context.Context, id, name string, genres []string) error
}

// StateStore persists the sync checkpoint.
type StateStore interface {
	Get(ctx context.Context, sourceID string) (*store.SyncState, error)
	Update(ctx context.Context, state *store.SyncState) error
}

// Config holds sync tuning knobs.
type Config struct {
	// PageLimit is the page size requested from the source, capped at the
	// source's maximum.
	PageLimit int
	// MaxPagesPerSync bounds the page loop so one cycle cannot run away
	// after a long absence.
	MaxPagesPerSync int
	// InitialLookback is how far back the first-ever sync reaches.
	InitialLookback time.Duration
	// ArtistWorkers caps concurrent artist-detail fetches.
	ArtistWorkers int
}

func (c *Config) setDefaults() {
	if c.PageLimit <= 0 || c.PageLimit > spotify.MaxPageLimit {
		c.PageLimit = spotify.MaxPageLimit
	}
	if c.MaxPagesPerSync <= 0 {
		c.MaxPagesPerSync = 5
	}
	if c.InitialLookback <= 0 {
		c.InitialLookback = 24 * time.Hour
	}
	if c.ArtistWorkers <= 0 {
		c.ArtistWorkers = 4
	}
}

// Result summarizes one sync run.
type Result struct {
	Fetched        int       `json:"fetched"`
	Inserted       int       `json:"inserted"`
	Duplicates     int       `json:"duplicates"`
	ArtistsUpdated int       `json:"artists_updated"`
	ArtistErrors   int       `json:"artist_errors"`
	SyncedAt       time.Time `json:"synced_at"`
}

// Service runs incremental syncs. Safe for concurrent use; overlapping runs
// coalesce into one.
type Service struct {
	source  Source
	plays   PlayStore
	artists ArtistStore
	state   StateStore
	cfg     Config
	logger  *slog.Logger

	mu sync.Mutex
}

// NewService creates a sync service.
func NewService(source Source, plays PlayStore, artists ArtistStore, state StateStore, cfg Config, logger *slog.Logger) *Service {
	cfg.setDefaults()
	return &Service{
		source:  source,
		plays:   plays,
		artists: artists,
		state:   state,
		cfg:     cfg,
		logger:  logger,
	}
}

// Sync pulls new plays since the last checkpoint, refreshes the artists they
// reference, and advances the checkpoint. A second call while one is running
// returns ErrSyncInProgress. A failed history fetch leaves the checkpoint
// untouched so the next run retries the same window.
func (s *Service) Sync(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	startedAt := time.Now()

	state, err := s.state.Get(ctx, SourceID)
	if err != nil {
		return nil, fmt.Errorf("loading sync state: %w", err)
	}

	since := state.LastSyncedAt()
	if since.IsZero() {
		since = startedAt.Add(-s.cfg.InitialLookback)
	}
	logger.Info("starting sync", "since", since)

	result := &Result{}
	artistIDs := make(map[string]struct{})

	cursor := since
	for page := 0; page < s.cfg.MaxPagesPerSync; page++ {
		items, err := s.source.RecentlyPlayedAfter(ctx, cursor, s.cfg.PageLimit)
		if err != nil {
			return nil, fmt.Errorf("fetching history page: %w", err)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			result.Fetched++
			artistIDs[item.ArtistID] = struct{}{}
			if item.PlayedAt.After(cursor) {
				cursor = item.PlayedAt
			}

			inserted, err := s.plays.Insert(ctx, store.Play{
				PlayedAtMs: item.PlayedAt.UnixMilli(),
				TrackID:    item.TrackID,
				TrackName:  item.TrackName,
				ArtistID:   item.ArtistID,
				DurationMs: int64(item.DurationMs),
			})
			if err != nil {
				return nil, fmt.Errorf("storing play: %w", err)
			}
			if inserted {
				result.Inserted++
			} else {
				result.Duplicates++
			}
		}

		if len(items) < s.cfg.PageLimit {
			break
		}
	}

	updated, failed := s.refreshArtists(ctx, logger, artistIDs)
	result.ArtistsUpdated = updated
	result.ArtistErrors = failed

	state.LastSyncedAtMs = startedAt.UnixMilli()
	state.TotalSynced += int64(result.Inserted)
	if err := s.state.Update(ctx, state); err != nil {
		return nil, fmt.Errorf("saving sync state: %w", err)
	}
	result.SyncedAt = startedAt

	logger.Info("sync complete",
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"artists_updated", result.ArtistsUpdated,
		"artist_errors", result.ArtistErrors,
	)
	return result, nil
}

// refreshArtists fetches details for each artist concurrently. Failures are
// logged and counted; they never fail the sync.
func (s *Service) refreshArtists(ctx context.Context, logger *slog.Logger, ids map[string]struct{}) (updated, failed int) {
	var updatedCount, failedCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ArtistWorkers)

	for id := range ids {
		id := id
		g.Go(func() error {
			details, err := s.source.ArtistDetails(ctx, id)
			if err != nil {
				logger.Warn("fetching artist failed", "artist_id", id, "error", err)
				failedCount.Add(1)
				return nil
			}
			if err := s.artists.UpsertDetails(ctx, details.ID, details.Name, details.Genres); err != nil {
				logger.Warn("storing artist failed", "artist_id", id, "error", err)
				failedCount.Add(1)
				return nil
			}
			updatedCount.Add(1)
			return nil
		})
	}
	g.Wait()

	return int(updatedCount.Load()), int(failedCount.Load())
}
