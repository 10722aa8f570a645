package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/pluto/internal/shared"
)

var (
	playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,64}$`)
	youtubeHosts      = map[string]bool{
		"youtube.com":       true,
		"www.youtube.com":   true,
		"m.youtube.com":     true,
		"music.youtube.com": true,
		"youtu.be":          true,
	}
)

// ParsePlaylistURL extracts the playlist ID from a YouTube URL carrying a "list" parameter
// (/playlist?list=…, /watch?v=…&list=…, youtu.be/…?list=…). A bare playlist ID is accepted as is.
func ParsePlaylistURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", shared.ErrInvalidPlaylistURL)
	}

	if playlistIDPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidPlaylistURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", shared.ErrInvalidPlaylistURL, u.Scheme)
	}
	if !youtubeHosts[strings.ToLower(u.Hostname())] {
		return "", fmt.Errorf("%w: %s is not a YouTube host", shared.ErrInvalidPlaylistURL, u.Hostname())
	}

	list := u.Query().Get("list")
	if !playlistIDPattern.MatchString(list) {
		return "", fmt.Errorf("%w: missing or malformed list parameter", shared.ErrInvalidPlaylistURL)
	}
	return list, nil
}
