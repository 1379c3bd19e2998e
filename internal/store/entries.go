package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EntryStore handles daily-entry database operations. Input columns and
// weather columns are updated independently so neither overwrite clobbers
// the other.
type EntryStore struct {
	db *sqlx.DB
}

// UpsertInput writes the user-entered columns for a day, overwriting any
// previous input for that day.
func (r *EntryStore) UpsertInput(ctx context.Context, day string, input DailyInput) error {
	query := `
		INSERT INTO daily_entries (day, mood, productivity, sleep_hours, sleep_start, sleep_end, exercise_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
			mood = excluded.mood,
			productivity = excluded.productivity,
			sleep_hours = excluded.sleep_hours,
			sleep_start = excluded.sleep_start,
			sleep_end = excluded.sleep_end,
			exercise_minutes = excluded.exercise_minutes
	`
	_, err := r.db.ExecContext(ctx, query,
		day,
		input.Mood,
		input.Productivity,
		input.SleepHours,
		input.SleepStart,
		input.SleepEnd,
		input.ExerciseMinutes,
	)
	if err != nil {
		return fmt.Errorf("upserting daily input: %w", err)
	}
	return nil
}

// UpsertWeather writes the weather columns for a day.
func (r *EntryStore) UpsertWeather(ctx context.Context, day string, temp float64, conditions, location string) error {
	query := `
		INSERT INTO daily_entries (day, temp, conditions, location)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
			temp = excluded.temp,
			conditions = excluded.conditions,
			location = excluded.location
	`
	if _, err := r.db.ExecContext(ctx, query, day, temp, conditions, location); err != nil {
		return fmt.Errorf("upserting weather: %w", err)
	}
	return nil
}

// Get retrieves the entry for a day.
func (r *EntryStore) Get(ctx context.Context, day string) (*Entry, error) {
	var entry Entry
	query := `SELECT * FROM daily_entries WHERE day = ?`
	err := r.db.GetContext(ctx, &entry, query, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return &entry, nil
}

// List returns entries in the inclusive day range, oldest first.
func (r *EntryStore) List(ctx context.Context, from, to string) ([]Entry, error) {
	var entries []Entry
	query := `SELECT * FROM daily_entries WHERE day BETWEEN ? AND ? ORDER BY day`
	if err := r.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	return entries, nil
}

// InputDays returns the days with a complete set of user inputs, newest
// first, capped at limit.
func (r *EntryStore) InputDays(ctx context.Context, limit int) ([]string, error) {
	var days []string
	query := `
		SELECT day FROM daily_entries
		WHERE mood IS NOT NULL
			AND productivity IS NOT NULL
			AND sleep_hours IS NOT NULL
			AND exercise_minutes IS NOT NULL
		ORDER BY day DESC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &days, query, limit); err != nil {
		return nil, fmt.Errorf("querying input days: %w", err)
	}
	return days, nil
}

// DaysWithWeather returns the days in the inclusive range that already have
// weather data.
func (r *EntryStore) DaysWithWeather(ctx context.Context, from, to string) ([]string, error) {
	var days []string
	query := `SELECT day FROM daily_entries WHERE day BETWEEN ? AND ? AND temp IS NOT NULL ORDER BY day`
	if err := r.db.SelectContext(ctx, &days, query, from, to); err != nil {
		return nil, fmt.Errorf("querying weather days: %w", err)
	}
	return days, nil
}

// Averages holds mean daily-input values over a window. Days without a value
// for a column don't count toward that column's mean.
type Averages struct {
	Mood            float64 `json:"mood"`
	Productivity    float64 `json:"productivity"`
	SleepHours      float64 `json:"sleep_hours"`
	ExerciseMinutes float64 `json:"exercise_minutes"`
}

// AveragesSince computes mean inputs for days >= from.
func (r *EntryStore) AveragesSince(ctx context.Context, from string) (*Averages, error) {
	query := `
		SELECT
			AVG(mood) AS mood,
			AVG(productivity) AS productivity,
			AVG(sleep_hours) AS sleep_hours,
			AVG(exercise_minutes) AS exercise_minutes
		FROM daily_entries
		WHERE day >= ?
	`
	var row struct {
		Mood            sql.NullFloat64 `db:"mood"`
		Productivity    sql.NullFloat64 `db:"productivity"`
		SleepHours      sql.NullFloat64 `db:"sleep_hours"`
		ExerciseMinutes sql.NullFloat64 `db:"exercise_minutes"`
	}
	if err := r.db.GetContext(ctx, &row, query, from); err != nil {
		return nil, fmt.Errorf("querying averages: %w", err)
	}

	return &Averages{
		Mood:            row.Mood.Float64,
		Productivity:    row.Productivity.Float64,
		SleepHours:      row.SleepHours.Float64,
		ExerciseMinutes: row.ExerciseMinutes.Float64,
	}, nil
}
