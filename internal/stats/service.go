// Package stats computes summary metrics over listening history and daily
// entries.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/evanjr/daylog/internal/store"
)

const dayFormat = "2006-01-02"

// MaxRecentTracks caps the recent-tracks listing.
const MaxRecentTracks = 50

// MusicSummary is the headline listening metrics for a window.
type MusicSummary struct {
	Days             int    `json:"days"`
	TopArtist        string `json:"top_artist"`
	TopGenre         string `json:"top_genre"`
	ListeningTimeMs  int64  `json:"listening_time_ms"`
	ListeningMinutes int64  `json:"listening_minutes"`
	PlayCount        int    `json:"play_count"`
}

// Report is the daily-input overview: short- and long-window averages plus
// the current entry streak.
type Report struct {
	WeekAverages  store.Averages `json:"week_averages"`
	MonthAverages store.Averages `json:"month_averages"`
	InputStreak   int            `json:"input_streak"`
}

// Service answers read-only metric queries.
type Service struct {
	stats   *store.StatsStore
	plays   *store.PlayStore
	entries *store.EntryStore
	now     func() time.Time
}

// NewService creates a stats service over the given store.
func NewService(s *store.Store) *Service {
	return &Service{
		stats:   s.Stats(),
		plays:   s.Plays(),
		entries: s.Entries(),
		now:     time.Now,
	}
}

// window returns the inclusive [start, end] covering the last days days.
func (s *Service) window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 7
	}
	end := s.now()
	return end.AddDate(0, 0, -days), end
}

// MusicSummary computes top artist, top genre, listening time, and play count
// over the last days days.
func (s *Service) MusicSummary(ctx context.Context, days int) (*MusicSummary, error) {
	start, end := s.window(days)

	topArtist, err := s.stats.TopArtist(ctx, start, end)
	if err != nil {
		return nil, err
	}
	topGenre, err := s.stats.TopGenre(ctx, start, end)
	if err != nil {
		return nil, err
	}
	totalMs, err := s.stats.TotalListeningTime(ctx, start, end)
	if err != nil {
		return nil, err
	}
	count, err := s.plays.CountInWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	return &MusicSummary{
		Days:             days,
		TopArtist:        topArtist,
		TopGenre:         topGenre,
		ListeningTimeMs:  totalMs,
		ListeningMinutes: totalMs / 60_000,
		PlayCount:        count,
	}, nil
}

// RecentTracks lists the newest plays in the last days days, capped at limit
// (at most MaxRecentTracks).
func (s *Service) RecentTracks(ctx context.Context, days, limit int) ([]store.RecentTrack, error) {
	if limit <= 0 || limit > MaxRecentTracks {
		limit = MaxRecentTracks
	}
	start, end := s.window(days)
	return s.plays.RecentTracks(ctx, start, end, limit)
}

// Report computes 7- and 30-day input averages and the entry streak.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	week, err := s.Averages(ctx, 7)
	if err != nil {
		return nil, err
	}
	month, err := s.Averages(ctx, 30)
	if err != nil {
		return nil, err
	}
	streak, err := s.InputStreak(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		WeekAverages:  *week,
		MonthAverages: *month,
		InputStreak:   streak,
	}, nil
}

// Averages computes mean daily inputs over the last days days.
func (s *Service) Averages(ctx context.Context, days int) (*store.Averages, error) {
	if days <= 0 {
		days = 7
	}
	from := s.now().AddDate(0, 0, -days).Format(dayFormat)
	avg, err := s.entries.AveragesSince(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("computing %d-day averages: %w", days, err)
	}
	return avg, nil
}

// InputStreak counts consecutive fully-entered days ending today or, when
// today has no entry yet, yesterday.
func (s *Service) InputStreak(ctx context.Context) (int, error) {
	days, err := s.entries.InputDays(ctx, 366)
	if err != nil {
		return 0, fmt.Errorf("loading input days: %w", err)
	}
	if len(days) == 0 {
		return 0, nil
	}

	today := s.now().Format(dayFormat)
	yesterday := s.now().AddDate(0, 0, -1).Format(dayFormat)
	if days[0] != today && days[0] != yesterday {
		return 0, nil
	}

	streak := 1
	cursor, err := time.Parse(dayFormat, days[0])
	if err != nil {
		return 0, fmt.Errorf("parsing entry day %q: %w", days[0], err)
	}
	for _, day := range days[1:] {
		cursor = cursor.AddDate(0, 0, -1)
		if day != cursor.Format(dayFormat) {
			break
		}
		streak++
	}
	return streak, nil
}
