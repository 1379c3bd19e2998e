package store

import "time"

// Play is one row of listening history. played_at_ms is the primary key:
// a play starting at an already-recorded instant is never re-inserted.
type Play struct {
	PlayedAtMs int64  `db:"played_at_ms"`
	TrackID    string `db:"track_id"`
	TrackName  string `db:"track_name"`
	ArtistID   string `db:"artist_id"`
	DurationMs int64  `db:"duration_ms"`
}

// PlayedAt returns the play instant.
func (p Play) PlayedAt() time.Time {
	return time.UnixMilli(p.PlayedAtMs)
}

// Artist is a row of artist metadata.
type Artist struct {
	ID            string `db:"artist_id"`
	Name          string `db:"name"`
	LastUpdatedMs int64  `db:"last_updated"`
}

// SyncState is the persisted checkpoint for one sync source.
type SyncState struct {
	SourceID       string `db:"source_id"`
	LastSyncedAtMs int64  `db:"last_synced_at_ms"`
	TotalSynced    int64  `db:"total_synced"`
}

// LastSyncedAt returns the checkpoint instant; zero when never synced.
func (s SyncState) LastSyncedAt() time.Time {
	if s.LastSyncedAtMs == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LastSyncedAtMs)
}

// RecentTrack is a view row for the recent-tracks list.
type RecentTrack struct {
	TrackName  string `db:"track_name"`
	ArtistName string `db:"artist_name"`
	PlayedAtMs int64  `db:"played_at_ms"`
}

// Entry is one calendar day of tracked data. Input and weather columns are
// written independently, so all of them are nullable.
type Entry struct {
	Day             string   `db:"day"`
	Mood            *int     `db:"mood"`
	Productivity    *int     `db:"productivity"`
	SleepHours      *float64 `db:"sleep_hours"`
	SleepStart      *string  `db:"sleep_start"`
	SleepEnd        *string  `db:"sleep_end"`
	ExerciseMinutes *float64 `db:"exercise_minutes"`
	Temp            *float64 `db:"temp"`
	Conditions      *string  `db:"conditions"`
	Location        *string  `db:"location"`
}

// DailyInput is the user-entered portion of an Entry.
type DailyInput struct {
	Mood            int     `json:"mood"`
	Productivity    int     `json:"productivity"`
	SleepHours      float64 `json:"sleep_hours"`
	SleepStart      string  `json:"sleep_start"`
	SleepEnd        string  `json:"sleep_end"`
	ExerciseMinutes float64 `json:"exercise_minutes"`
}
