// package services defines interface PlaylistSource for reading playlists from video platforms
//
// YouTube (Data API v3)
package services

import (
	"context"
)

// PlaylistSource defines the interface for video platforms that a course can be imported from.
type PlaylistSource interface {
	// GetPlaylist retrieves playlist metadata by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error)

	// ListPlaylistVideos retrieves every playable video of the playlist in playlist order,
	// with durations resolved where the platform reports them.
	ListPlaylistVideos(ctx context.Context, playlistID string) ([]Video, error)

	// Name returns the name of the platform (e.g., "YouTube")
	Name() string
}

// Playlist represents playlist metadata from any platform
type Playlist struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	ItemCount    int
}

// Video represents one playlist entry from any platform
type Video struct {
	ID           string
	Title        string
	Position     int
	DurationS    *int    // nil when the platform does not report a duration
	ThumbnailURL *string // nil when the entry has no thumbnail
}
