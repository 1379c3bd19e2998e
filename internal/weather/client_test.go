package weather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key")
	c.baseURL = srv.URL
	return c
}

func TestClientDay(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"days":[{"temp":21.5,"conditions":"Partially cloudy"}]}`))
	})

	conditions, err := c.Day(context.Background(), "Seattle,WA", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 21.5, conditions.Temp)
	assert.Equal(t, "Partially cloudy", conditions.Conditions)
	assert.True(t, strings.HasSuffix(gotPath, "/Seattle,WA/2026-08-28"))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"days":[{"temp":18,"conditions":"Rain"}]}`))
	})

	conditions, err := c.Day(context.Background(), "Seattle,WA", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 18.0, conditions.Temp)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Day(context.Background(), "Seattle,WA", "2026-08-28")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"days":[]}`))
	})

	_, err := c.Day(context.Background(), "Seattle,WA", "2026-08-28")
	assert.ErrorIs(t, err, ErrNoData)
}

// fakeEntries records weather writes and reports pre-populated days.
type fakeEntries struct {
	have    []string
	written map[string]float64
}

func (f *fakeEntries) DaysWithWeather(context.Context, string, string) ([]string, error) {
	return f.have, nil
}

func (f *fakeEntries) UpsertWeather(_ context.Context, day string, temp float64, _, _ string) error {
	if f.written == nil {
		f.written = make(map[string]float64)
	}
	f.written[day] = temp
	return nil
}

type fakeFetcher struct {
	byDay map[string]*Conditions
	calls []string
}

func (f *fakeFetcher) Day(_ context.Context, _, day string) (*Conditions, error) {
	f.calls = append(f.calls, day)
	if c, ok := f.byDay[day]; ok {
		return c, nil
	}
	return nil, ErrNoData
}

func TestBackfillSkipsPopulatedDays(t *testing.T) {
	fetcher := &fakeFetcher{byDay: map[string]*Conditions{
		"2026-08-26": {Temp: 20, Conditions: "Clear"},
		"2026-08-28": {Temp: 22, Conditions: "Clear"},
	}}
	entries := &fakeEntries{have: []string{"2026-08-27"}}

	svc := NewService(fetcher, entries, "Seattle,WA", slog.New(slog.NewTextHandler(io.Discard, nil)))

	filled, err := svc.Backfill(context.Background(), "2026-08-26", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 2, filled)
	assert.Equal(t, []string{"2026-08-26", "2026-08-28"}, fetcher.calls)
	assert.Equal(t, 20.0, entries.written["2026-08-26"])
	assert.Equal(t, 22.0, entries.written["2026-08-28"])
}

func TestBackfillSkipsFailedDays(t *testing.T) {
	// 2026-08-27 has no data upstream; the other day still lands.
	fetcher := &fakeFetcher{byDay: map[string]*Conditions{
		"2026-08-28": {Temp: 22, Conditions: "Clear"},
	}}
	entries := &fakeEntries{}

	svc := NewService(fetcher, entries, "Seattle,WA", slog.New(slog.NewTextHandler(io.Discard, nil)))

	filled, err := svc.Backfill(context.Background(), "2026-08-27", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
	assert.NotContains(t, entries.written, "2026-08-27")
	assert.Contains(t, entries.written, "2026-08-28")
}
