// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
)

// MaxPageLimit is the largest page size the recently-played endpoint accepts.
const MaxPageLimit = 50

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a Spotify client wrapper. The HTTP client is expected to
// inject a bearer token on every request (see auth.Manager.HTTPClient).
func New(httpClient *http.Client) *Client {
	return &Client{api: spotify.New(httpClient, spotify.WithRetry(true))}
}

// RecentlyPlayedAfter fetches up to limit plays that started after the given
// instant. The cursor is the `after` timestamp in epoch milliseconds.
func (c *Client) RecentlyPlayedAfter(ctx context.Context, after time.Time, limit int) ([]Play, error) {
	if limit <= 0 || limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{
		Limit:        spotify.Numeric(limit),
		AfterEpochMs: after.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	plays := make([]Play, len(items))
	for i, item := range items {
		plays[i] = convertPlay(item)
	}
	return plays, nil
}

// ArtistDetails fetches full details for one artist.
func (c *Client) ArtistDetails(ctx context.Context, id string) (*ArtistDetails, error) {
	artist, err := c.api.GetArtist(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("fetching artist %s: %w", id, err)
	}

	return &ArtistDetails{
		ID:     string(artist.ID),
		Name:   artist.Name,
		Genres: artist.Genres,
	}, nil
}
