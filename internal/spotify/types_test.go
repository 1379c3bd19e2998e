package spotify

import (
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
)

func TestConvertPlay(t *testing.T) {
	playedAt := time.Date(2025, 8, 20, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		item spotify.RecentlyPlayedItem
		want Play
	}{
		{
			name: "single artist",
			item: spotify.RecentlyPlayedItem{
				Track: spotify.SimpleTrack{
					ID:       "track123",
					Name:     "Test Song",
					Duration: 210000,
					Artists: []spotify.SimpleArtist{
						{ID: "artist1", Name: "Artist One"},
					},
				},
				PlayedAt: playedAt,
			},
			want: Play{
				TrackID:    "track123",
				TrackName:  "Test Song",
				ArtistID:   "artist1",
				PlayedAt:   playedAt,
				DurationMs: 210000,
			},
		},
		{
			name: "multiple artists keeps primary",
			item: spotify.RecentlyPlayedItem{
				Track: spotify.SimpleTrack{
					ID:       "track456",
					Name:     "Collab Track",
					Duration: 180000,
					Artists: []spotify.SimpleArtist{
						{ID: "artistA", Name: "Artist A"},
						{ID: "artistB", Name: "Artist B"},
					},
				},
				PlayedAt: playedAt,
			},
			want: Play{
				TrackID:    "track456",
				TrackName:  "Collab Track",
				ArtistID:   "artistA",
				PlayedAt:   playedAt,
				DurationMs: 180000,
			},
		},
		{
			name: "no artists",
			item: spotify.RecentlyPlayedItem{
				Track: spotify.SimpleTrack{
					ID:       "track789",
					Name:     "Orphan Track",
					Duration: 90000,
					Artists:  []spotify.SimpleArtist{},
				},
				PlayedAt: playedAt,
			},
			want: Play{
				TrackID:    "track789",
				TrackName:  "Orphan Track",
				ArtistID:   "unknown",
				PlayedAt:   playedAt,
				DurationMs: 90000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertPlay(tt.item)
			if got != tt.want {
				t.Errorf("convertPlay() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
