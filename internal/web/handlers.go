package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evanjr/daylog/internal/auth"
	"github.com/evanjr/daylog/internal/musicsync"
	"github.com/evanjr/daylog/internal/stats"
	"github.com/evanjr/daylog/internal/store"
)

const dayFormat = "2006-01-02"

// Authenticator is the OAuth surface the handlers drive.
type Authenticator interface {
	StartAuthorization() (string, error)
	HandleRedirectCallback(ctx context.Context, u *url.URL) error
	Authenticated() bool
	Logout() error
}

// SyncRunner triggers a sync cycle.
type SyncRunner interface {
	Sync(ctx context.Context) (*musicsync.Result, error)
}

// StatsProvider answers metric queries.
type StatsProvider interface {
	MusicSummary(ctx context.Context, days int) (*stats.MusicSummary, error)
	RecentTracks(ctx context.Context, days, limit int) ([]store.RecentTrack, error)
	Report(ctx context.Context) (*stats.Report, error)
}

// EntryStore reads and writes daily entries.
type EntryStore interface {
	UpsertInput(ctx context.Context, day string, input store.DailyInput) error
	Get(ctx context.Context, day string) (*store.Entry, error)
	List(ctx context.Context, from, to string) ([]store.Entry, error)
}

// WeatherBackfiller fills in missing weather days. Nil when weather is
// disabled.
type WeatherBackfiller interface {
	BackfillRecent(ctx context.Context, days int) (int, error)
}

// Handlers contains HTTP request handlers.
type Handlers struct {
	auth    Authenticator
	syncer  SyncRunner
	stats   StatsProvider
	entries EntryStore
	weather WeatherBackfiller
	logger  *slog.Logger
}

// NewHandlers creates the handler set. weather may be nil.
func NewHandlers(a Authenticator, syncer SyncRunner, stats StatsProvider, entries EntryStore, weather WeatherBackfiller, logger *slog.Logger) *Handlers {
	return &Handlers{
		auth:    a,
		syncer:  syncer,
		stats:   stats,
		entries: entries,
		weather: weather,
		logger:  logger,
	}
}

// AuthStatus reports whether a Spotify account is connected.
func (h *Handlers) AuthStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]bool{"authenticated": h.auth.Authenticated()})
}

// Login redirects the browser to the Spotify authorization page.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.auth.StartAuthorization()
	if err != nil {
		h.serverError(w, "starting authorization", err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles the OAuth redirect and shows a small result page.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.HandleRedirectCallback(r.Context(), r.URL); err != nil {
		h.logger.Error("authorization callback failed", "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<html><body><h1>Login failed</h1><p>%s</p></body></html>", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Connected to Spotify</h1><p>You can close this window.</p></body></html>")
}

// Logout forgets the stored tokens.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(); err != nil {
		h.serverError(w, "logging out", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// RunSync triggers a sync now.
func (h *Handlers) RunSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncer.Sync(r.Context())
	switch {
	case errors.Is(err, musicsync.ErrSyncInProgress):
		h.writeError(w, http.StatusConflict, "sync already in progress")
	case errors.Is(err, auth.ErrAuthRequired):
		h.writeError(w, http.StatusUnauthorized, "not connected to Spotify")
	case err != nil:
		h.serverError(w, "running sync", err)
	default:
		h.writeJSON(w, http.StatusOK, result)
	}
}

// MusicSummary serves the windowed listening metrics.
func (h *Handlers) MusicSummary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)

	summary, err := h.stats.MusicSummary(r.Context(), days)
	if err != nil {
		h.serverError(w, "computing music summary", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// RecentTracks serves the newest plays.
func (h *Handlers) RecentTracks(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	limit := queryInt(r, "limit", stats.MaxRecentTracks)

	tracks, err := h.stats.RecentTracks(r.Context(), days, limit)
	if err != nil {
		h.serverError(w, "listing recent tracks", err)
		return
	}
	if tracks == nil {
		tracks = []store.RecentTrack{}
	}
	h.writeJSON(w, http.StatusOK, tracks)
}

// PutEntry upserts the user inputs for a day.
func (h *Handlers) PutEntry(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if !validDay(day) {
		h.writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}

	var input store.DailyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid entry body")
		return
	}

	if err := h.entries.UpsertInput(r.Context(), day, input); err != nil {
		h.serverError(w, "saving entry", err)
		return
	}

	entry, err := h.entries.Get(r.Context(), day)
	if err != nil {
		h.serverError(w, "reloading entry", err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// GetEntry serves one day's entry.
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if !validDay(day) {
		h.writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}

	entry, err := h.entries.Get(r.Context(), day)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no entry for day")
		return
	}
	if err != nil {
		h.serverError(w, "loading entry", err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// ListEntries serves the entries in a day range, defaulting to the last 30
// days.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		to = time.Now().Format(dayFormat)
	}
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().AddDate(0, 0, -30).Format(dayFormat)
	}
	if !validDay(from) || !validDay(to) {
		h.writeError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
		return
	}

	entries, err := h.entries.List(r.Context(), from, to)
	if err != nil {
		h.serverError(w, "listing entries", err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// Report serves input averages and the entry streak.
func (h *Handlers) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.stats.Report(r.Context())
	if err != nil {
		h.serverError(w, "building report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// RefreshWeather backfills missing weather days.
func (h *Handlers) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		h.writeError(w, http.StatusNotImplemented, "weather is not configured")
		return
	}

	days := queryInt(r, "days", 7)
	filled, err := h.weather.BackfillRecent(r.Context(), days)
	if err != nil {
		h.serverError(w, "refreshing weather", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"filled": filled})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response failed", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handlers) serverError(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action+" failed", "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func validDay(day string) bool {
	_, err := time.Parse(dayFormat, day)
	return err == nil
}
