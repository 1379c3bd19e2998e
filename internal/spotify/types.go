package spotify

import (
	"time"

	"github.com/zmb3/spotify/v2"
)

// Play is a single listening-history item.
type Play struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	PlayedAt   time.Time
	DurationMs int
}

// ArtistDetails contains artist metadata. An empty genre list is valid data,
// not an error.
type ArtistDetails struct {
	ID     string
	Name   string
	Genres []string
}

// convertPlay maps a recently-played API item to a Play. Only the primary
// artist is kept; tracks without artists get the "unknown" artist id.
func convertPlay(item spotify.RecentlyPlayedItem) Play {
	artistID := "unknown"
	if len(item.Track.Artists) > 0 {
		artistID = string(item.Track.Artists[0].ID)
	}

	return Play{
		TrackID:    string(item.Track.ID),
		TrackName:  item.Track.Name,
		ArtistID:   artistID,
		PlayedAt:   item.PlayedAt,
		DurationMs: int(item.Track.Duration),
	}
}
