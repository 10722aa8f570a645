package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/pluto/internal/shared"
)

func newTestService(url string) *YouTubeService {
	return NewYouTubeService(shared.YouTubeConfig{APIKey: "test-key", BaseURL: url}, nil)
}

func TestYouTubeService(t *testing.T) {
	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("creates service with default URL", func(t *testing.T) {
			if svc := NewYouTubeService(shared.YouTubeConfig{}, nil); svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
		})

		t.Run("trims trailing slash from custom URL", func(t *testing.T) {
			if svc := newTestService("http://localhost:9000/"); svc.baseURL != "http://localhost:9000" {
				t.Errorf("expected trimmed baseURL, got %s", svc.baseURL)
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		if svc := newTestService(""); svc.Name() != "YouTube" {
			t.Errorf("expected name to be 'YouTube', got %s", svc.Name())
		}
	})

	t.Run("missing API key", func(t *testing.T) {
		svc := NewYouTubeService(shared.YouTubeConfig{}, nil)
		if _, err := svc.GetPlaylist(context.Background(), "PL123"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("GetPlaylist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists" {
				t.Errorf("expected path /playlists, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("key") != "test-key" {
				t.Error("expected API key query parameter")
			}
			if r.URL.Query().Get("id") != "PL123" {
				t.Errorf("expected id PL123, got %s", r.URL.Query().Get("id"))
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{
					"id":             "PL123",
					"snippet":        map[string]any{"title": "Learn Go", "channelTitle": "Gophers"},
					"contentDetails": map[string]any{"itemCount": 12},
				}},
			})
		}))
		defer server.Close()

		playlist, err := newTestService(server.URL).GetPlaylist(context.Background(), "PL123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if playlist.Title != "Learn Go" || playlist.ItemCount != 12 || playlist.ChannelTitle != "Gophers" {
			t.Errorf("unexpected playlist: %+v", playlist)
		}
	})

	t.Run("GetPlaylist with no items is not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		}))
		defer server.Close()

		_, err := newTestService(server.URL).GetPlaylist(context.Background(), "PLmissing")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 403, "message": "quotaExceeded"},
			})
		}))
		defer server.Close()

		_, err := newTestService(server.URL).GetPlaylist(context.Background(), "PL123")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "quotaExceeded") {
			t.Errorf("expected API message in error, got %v", err)
		}
	})

	t.Run("ListPlaylistVideos", func(t *testing.T) {
		var videoRequests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			switch r.URL.Path {
			case "/playlistItems":
				if r.URL.Query().Get("pageToken") == "" {
					json.NewEncoder(w).Encode(map[string]any{
						"nextPageToken": "page2",
						"items": []map[string]any{
							{
								"snippet": map[string]any{
									"title":    "Intro",
									"position": 0,
									"thumbnails": map[string]any{
										"default": map[string]any{"url": "https://i.ytimg.com/vi/a/default.jpg"},
										"medium":  map[string]any{"url": "https://i.ytimg.com/vi/a/mqdefault.jpg"},
									},
								},
								"contentDetails": map[string]any{"videoId": "a"},
							},
							{
								"snippet":        map[string]any{"title": "Deleted video", "position": 1},
								"contentDetails": map[string]any{"videoId": "gone"},
							},
						},
					})
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{{
						"snippet":        map[string]any{"title": "Outro", "position": 2},
						"contentDetails": map[string]any{"videoId": "b"},
					}},
				})
			case "/videos":
				videoRequests++
				if got := r.URL.Query().Get("id"); got != "a,b" {
					t.Errorf("expected ids a,b, got %s", got)
				}
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						{"id": "a", "contentDetails": map[string]any{"duration": "PT4M13S"}},
					},
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		videos, err := newTestService(server.URL).ListPlaylistVideos(context.Background(), "PL123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(videos) != 2 {
			t.Fatalf("expected 2 playable videos, got %d", len(videos))
		}
		if videos[0].DurationS == nil || *videos[0].DurationS != 253 {
			t.Errorf("expected 253s for the first video, got %v", videos[0].DurationS)
		}
		if videos[0].ThumbnailURL == nil || !strings.Contains(*videos[0].ThumbnailURL, "mqdefault") {
			t.Errorf("expected the medium thumbnail, got %v", videos[0].ThumbnailURL)
		}
		if videos[1].DurationS != nil {
			t.Error("expected unknown duration for a video missing from /videos")
		}
		if videoRequests != 1 {
			t.Errorf("expected one batched /videos request, got %d", videoRequests)
		}
	})

	t.Run("durations are requested in batches of 50", func(t *testing.T) {
		var batches []int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/playlistItems":
				items := make([]map[string]any, 0, 120)
				for i := range 120 {
					items = append(items, map[string]any{
						"snippet":        map[string]any{"title": fmt.Sprintf("Video %d", i), "position": i},
						"contentDetails": map[string]any{"videoId": fmt.Sprintf("v%d", i)},
					})
				}
				json.NewEncoder(w).Encode(map[string]any{"items": items})
			case "/videos":
				batches = append(batches, len(strings.Split(r.URL.Query().Get("id"), ",")))
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			}
		}))
		defer server.Close()

		if _, err := newTestService(server.URL).ListPlaylistVideos(context.Background(), "PL123"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if fmt.Sprint(batches) != "[50 50 20]" {
			t.Errorf("expected batches [50 50 20], got %v", batches)
		}
	})
}

func TestParseISODuration(t *testing.T) {
	tc := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"PT4M13S", 253, false},
		{"PT1H", 3600, false},
		{"PT1H2M3S", 3723, false},
		{"P1DT5M", 86700, false},
		{"PT0S", 0, false},
		{"P0D", 0, false},
		{"", 0, true},
		{"P", 0, true},
		{"PT", 0, true},
		{"P1W", 0, true},
		{"4:13", 0, true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISODuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseISODuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseISODuration(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePlaylistURL(t *testing.T) {
	const id = "PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG"

	tc := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"playlist page", "https://www.youtube.com/playlist?list=" + id, id, false},
		{"watch page with list", "https://www.youtube.com/watch?v=abc123&list=" + id + "&index=2", id, false},
		{"music host", "https://music.youtube.com/playlist?list=" + id, id, false},
		{"short link", "https://youtu.be/abc123?list=" + id, id, false},
		{"no scheme", "youtube.com/playlist?list=" + id, id, false},
		{"bare id", id, id, false},
		{"surrounding spaces", "  https://m.youtube.com/playlist?list=" + id + " ", id, false},
		{"empty", "", "", true},
		{"no list parameter", "https://www.youtube.com/watch?v=abc123", "", true},
		{"other host", "https://vimeo.com/playlist?list=" + id, "", true},
		{"bad scheme", "ftp://youtube.com/playlist?list=" + id, "", true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlaylistURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidPlaylistURL) {
					t.Errorf("expected ErrInvalidPlaylistURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePlaylistURL() = %s, want %s", got, tt.want)
			}
		})
	}
}
