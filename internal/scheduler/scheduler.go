// Package scheduler drives periodic background syncs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/evanjr/daylog/internal/auth"
	"github.com/evanjr/daylog/internal/musicsync"
)

// Syncer runs one sync cycle.
type Syncer interface {
	Sync(ctx context.Context) (*musicsync.Result, error)
}

// Scheduler runs a sync on start and then on every tick. After a failure it
// backs off exponentially instead of hammering the same failed call each
// interval; a success resets the backoff.
type Scheduler struct {
	syncer     Syncer
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

// New creates a scheduler.
func New(syncer Syncer, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Scheduler{
		syncer:     syncer,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start blocks until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 30 * time.Second
	policy.MaxInterval = s.interval
	policy.MaxElapsedTime = 0

	wait := s.interval
	if err := s.runSync(ctx); err != nil {
		wait = policy.NextBackOff()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			if err := s.runSync(ctx); err != nil {
				timer.Reset(policy.NextBackOff())
			} else {
				policy.Reset()
				timer.Reset(s.interval)
			}
		}
	}
}

// runSync runs one cycle. Not-actionable outcomes (another sync already
// running, no Spotify login yet) don't count as failures.
func (s *Scheduler) runSync(ctx context.Context) error {
	syncCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	_, err := s.syncer.Sync(syncCtx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, musicsync.ErrSyncInProgress):
		s.logger.Debug("sync already running, skipping tick")
		return nil
	case errors.Is(err, auth.ErrAuthRequired):
		s.logger.Info("sync skipped, not authenticated")
		return nil
	default:
		s.logger.Error("sync failed", "error", err)
		return err
	}
}
