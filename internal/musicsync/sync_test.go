package musicsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanjr/daylog/internal/spotify"
	"github.com/evanjr/daylog/internal/store"
)

// fakeSource serves canned history pages and artist details.
type fakeSource struct {
	pages      [][]spotify.Play
	pageCalls  int
	afterSeen  []time.Time
	fetchErr   error
	artists    map[string]*spotify.ArtistDetails
	artistErrs map[string]error
}

func (f *fakeSource) RecentlyPlayedAfter(_ context.Context, after time.Time, _ int) ([]spotify.Play, error) {
	f.afterSeen = append(f.afterSeen, after)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.pageCalls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.pageCalls]
	f.pageCalls++
	return page, nil
}

func (f *fakeSource) ArtistDetails(_ context.Context, id string) (*spotify.ArtistDetails, error) {
	if err, ok := f.artistErrs[id]; ok {
		return nil, err
	}
	details, ok := f.artists[id]
	if !ok {
		return nil, errors.New("unknown artist")
	}
	return details, nil
}

func newTestService(t *testing.T, source Source, cfg Config) (*Service, *store.Store) {
	t.Helper()

	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(source, st.Plays(), st.Artists(), st.SyncState(), cfg, logger)
	return svc, st
}

func TestSyncStoresPlaysAndArtists(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	source := &fakeSource{
		pages: [][]spotify.Play{{
			{TrackID: "t1", TrackName: "First", ArtistID: "a1", PlayedAt: base, DurationMs: 180_000},
			{TrackID: "t2", TrackName: "Second", ArtistID: "a1", PlayedAt: base.Add(3 * time.Minute), DurationMs: 200_000},
		}},
		artists: map[string]*spotify.ArtistDetails{
			"a1": {ID: "a1", Name: "Artist One", Genres: []string{"indie"}},
		},
	}

	svc, st := newTestService(t, source, Config{})

	result, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 1, result.ArtistsUpdated)
	assert.Equal(t, 0, result.ArtistErrors)

	count, err := st.Plays().CountInWindow(ctx, base.Add(-time.Minute), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	artist, err := st.Artists().Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Artist One", artist.Name)

	state, err := st.SyncState().Get(ctx, SourceID)
	require.NoError(t, err)
	assert.False(t, state.LastSyncedAt().IsZero(), "checkpoint should advance")
	assert.Equal(t, int64(2), state.TotalSynced)
}

func TestSyncReportsDuplicates(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	play := spotify.Play{TrackID: "t1", TrackName: "First", ArtistID: "a1", PlayedAt: base, DurationMs: 1000}
	source := &fakeSource{
		pages:   [][]spotify.Play{{play}},
		artists: map[string]*spotify.ArtistDetails{"a1": {ID: "a1", Name: "One"}},
	}

	svc, st := newTestService(t, source, Config{})

	_, err := st.Plays().Insert(ctx, store.Play{
		PlayedAtMs: base.UnixMilli(),
		TrackID:    "t1",
		TrackName:  "First",
		ArtistID:   "a1",
		DurationMs: 1000,
	})
	require.NoError(t, err)

	result, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Duplicates)

	count, err := st.Plays().CountInWindow(ctx, base.Add(-time.Minute), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncArtistFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	source := &fakeSource{
		pages: [][]spotify.Play{{
			{TrackID: "t1", TrackName: "First", ArtistID: "bad", PlayedAt: base, DurationMs: 1000},
		}},
		artistErrs: map[string]error{"bad": errors.New("rate limited")},
	}

	svc, st := newTestService(t, source, Config{})

	result, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.ArtistErrors)
	assert.Equal(t, 0, result.ArtistsUpdated)

	// The play commits even though its artist never resolved.
	count, err := st.Plays().CountInWindow(ctx, base.Add(-time.Minute), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncFetchFailureLeavesCheckpoint(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{fetchErr: errors.New("boom")}
	svc, st := newTestService(t, source, Config{})

	_, err := svc.Sync(ctx)
	require.Error(t, err)

	state, err := st.SyncState().Get(ctx, SourceID)
	require.NoError(t, err)
	assert.True(t, state.LastSyncedAt().IsZero(), "failed sync must not advance the checkpoint")
}

func TestSyncPaginatesUntilShortPage(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	fullPage := make([]spotify.Play, 2)
	for i := range fullPage {
		fullPage[i] = spotify.Play{
			TrackID:    "t",
			TrackName:  "x",
			ArtistID:   "a1",
			PlayedAt:   base.Add(time.Duration(i) * time.Minute),
			DurationMs: 1000,
		}
	}
	shortPage := []spotify.Play{{
		TrackID:    "t",
		TrackName:  "x",
		ArtistID:   "a1",
		PlayedAt:   base.Add(10 * time.Minute),
		DurationMs: 1000,
	}}

	source := &fakeSource{
		pages:   [][]spotify.Play{fullPage, shortPage},
		artists: map[string]*spotify.ArtistDetails{"a1": {ID: "a1", Name: "One"}},
	}

	svc, _ := newTestService(t, source, Config{PageLimit: 2})

	result, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.pageCalls)
	assert.Equal(t, 3, result.Fetched)

	// The second request resumes from the newest play of the first page.
	require.Len(t, source.afterSeen, 2)
	assert.Equal(t, base.Add(time.Minute), source.afterSeen[1])
}

func TestSyncPageLoopIsBounded(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	// Every page comes back full; the loop must stop at the cap.
	pages := make([][]spotify.Play, 10)
	for i := range pages {
		pages[i] = []spotify.Play{
			{TrackID: "t", TrackName: "x", ArtistID: "a1", PlayedAt: base.Add(time.Duration(i) * time.Minute), DurationMs: 1000},
		}
	}

	source := &fakeSource{
		pages:   pages,
		artists: map[string]*spotify.ArtistDetails{"a1": {ID: "a1", Name: "One"}},
	}

	svc, _ := newTestService(t, source, Config{PageLimit: 1, MaxPagesPerSync: 3})

	_, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, source.pageCalls)
}

func TestSyncCoalescesConcurrentRuns(t *testing.T) {
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	source := &blockingSource{started: started, release: release}

	svc, _ := newTestService(t, source, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(ctx)
		done <- err
	}()

	<-started
	_, err := svc.Sync(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

// blockingSource parks the first history fetch until released.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	once    bool
}

func (b *blockingSource) RecentlyPlayedAfter(context.Context, time.Time, int) ([]spotify.Play, error) {
	if !b.once {
		b.once = true
		close(b.started)
		<-b.release
	}
	return nil, nil
}

func (b *blockingSource) ArtistDetails(context.Context, string) (*spotify.ArtistDetails, error) {
	return nil, errors.New("unused")
}
