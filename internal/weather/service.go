package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const dayFormat = "2006-01-02"

// Fetcher fetches conditions for one day.
type Fetcher interface {
	Day(ctx context.Context, location, day string) (*Conditions, error)
}

// EntryStore is the subset of the entry store the service writes through.
type EntryStore interface {
	DaysWithWeather(ctx context.Context, from, to string) ([]string, error)
	UpsertWeather(ctx context.Context, day string, temp float64, conditions, location string) error
}

// Service backfills weather for days that don't have it yet. Days already
// populated are never refetched.
type Service struct {
	fetcher  Fetcher
	entries  EntryStore
	location string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a weather service for a fixed location.
func NewService(fetcher Fetcher, entries EntryStore, location string, logger *slog.Logger) *Service {
	return &Service{
		fetcher:  fetcher,
		entries:  entries,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Backfill fills in weather for every day in the inclusive range that has
// none. A failed day is logged and skipped. Returns the number of days
// filled.
func (s *Service) Backfill(ctx context.Context, from, to string) (int, error) {
	start, err := time.Parse(dayFormat, from)
	if err != nil {
		return 0, fmt.Errorf("parsing range start: %w", err)
	}
	end, err := time.Parse(dayFormat, to)
	if err != nil {
		return 0, fmt.Errorf("parsing range end: %w", err)
	}

	have, err := s.entries.DaysWithWeather(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("listing weather days: %w", err)
	}
	done := make(map[string]struct{}, len(have))
	for _, day := range have {
		done[day] = struct{}{}
	}

	filled := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := d.Format(dayFormat)
		if _, ok := done[day]; ok {
			continue
		}

		conditions, err := s.fetcher.Day(ctx, s.location, day)
		if err != nil {
			s.logger.Warn("fetching weather failed", "day", day, "error", err)
			continue
		}
		if err := s.entries.UpsertWeather(ctx, day, conditions.Temp, conditions.Conditions, s.location); err != nil {
			return filled, fmt.Errorf("storing weather for %s: %w", day, err)
		}
		filled++
	}
	return filled, nil
}

// BackfillRecent backfills the last days days up to today.
func (s *Service) BackfillRecent(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = 7
	}
	to := s.now()
	from := to.AddDate(0, 0, -(days - 1))
	return s.Backfill(ctx, from.Format(dayFormat), to.Format(dayFormat))
}
