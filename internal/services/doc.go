// Package services defines the [PlaylistSource] interface for video platforms and implements it for YouTube.
//
// # YouTube Implementation
//
// [YouTubeService] reads public and unlisted playlists from the YouTube Data API v3 with an API key:
//   - GET /playlists : title, channel, and item count
//   - GET /playlistItems : entries in playlist order, 50 per page
//   - GET /videos : ISO 8601 durations, 50 IDs per request
//
// Requests share one [rate.Limiter] so a large playlist does not exhaust quota in a burst.
// Deleted and private entries are dropped.
//
// # URL Parsing
//
// [ParsePlaylistURL] accepts the URL forms users paste (playlist pages, watch pages with a list
// parameter, music.youtube.com, youtu.be) and returns the playlist ID.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : no API key configured
//   - [shared.ErrPlaylistNotFound] : unknown or private playlist
//   - [shared.ErrAPIRequest] : API returned a non-2xx status
//   - [shared.ErrServiceUnavailable] : the request could not be sent
//   - [shared.ErrInvalidPlaylistURL] : the pasted URL has no usable playlist ID
package services
