// YouTube Data API v3 [PlaylistSource] implementation
//
// Uses an API key; only public and unlisted playlists can be read.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/desertthunder/pluto/internal/shared"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"
	maxResults       = 50
)

// Titles the API reports for entries that can no longer be watched.
var unavailableTitles = map[string]bool{
	"Deleted video": true,
	"Private video": true,
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// YouTubeThumbnail is one rendition of a thumbnail.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeThumbnails are the renditions keyed by the API's size names.
type YouTubeThumbnails struct {
	Default *YouTubeThumbnail `json:"default"`
	Medium  *YouTubeThumbnail `json:"medium"`
	High    *YouTubeThumbnail `json:"high"`
}

// Best returns the medium rendition, falling back to high then default.
func (t YouTubeThumbnails) Best() *string {
	for _, th := range []*YouTubeThumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.URL != "" {
			u := th.URL
			return &u
		}
	}
	return nil
}

type youtubePlaylistList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
		ContentDetails struct {
			ItemCount int `json:"itemCount"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubePlaylistItemList struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title      string            `json:"title"`
			Position   int               `json:"position"`
			Thumbnails YouTubeThumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubeVideoList struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubeError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// YouTubeService implements the [PlaylistSource] interface for the YouTube Data API.
type YouTubeService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewYouTubeService creates a new YouTube Data API service instance.
//
// Requests are limited to cfg.RequestsPerSecond; zero or less disables limiting.
func NewYouTubeService(cfg shared.YouTubeConfig, client *http.Client) *YouTubeService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &YouTubeService{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if y.apiKey == "" {
		return fmt.Errorf("%w: youtube.api_key is not set", shared.ErrMissingCredentials)
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("key", y.apiKey)
	apiURL := y.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp youtubeError
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, msg)
		}
		return fmt.Errorf("%w: youtube API error (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetPlaylist retrieves a playlist's snippet and item count.
//
// Calls GET /playlists?part=snippet,contentDetails&id={id}.
func (y *YouTubeService) GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error) {
	var list youtubePlaylistList
	params := url.Values{"part": {"snippet,contentDetails"}, "id": {playlistID}}
	if err := y.doRequest(ctx, "/playlists", params, &list); err != nil {
		return nil, err
	}

	if len(list.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	item := list.Items[0]
	return &Playlist{
		ID:           item.ID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ChannelTitle: item.Snippet.ChannelTitle,
		ItemCount:    item.ContentDetails.ItemCount,
	}, nil
}

// ListPlaylistVideos pages through /playlistItems, drops deleted and private entries, and resolves
// durations from /videos in batches of 50.
func (y *YouTubeService) ListPlaylistVideos(ctx context.Context, playlistID string) ([]Video, error) {
	var (
		videos    []Video
		pageToken string
	)

	for {
		params := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {strconv.Itoa(maxResults)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page youtubePlaylistItemList
		if err := y.doRequest(ctx, "/playlistItems", params, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.ContentDetails.VideoID == "" || unavailableTitles[item.Snippet.Title] {
				continue
			}
			videos = append(videos, Video{
				ID:           item.ContentDetails.VideoID,
				Title:        item.Snippet.Title,
				Position:     item.Snippet.Position,
				ThumbnailURL: item.Snippet.Thumbnails.Best(),
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := y.resolveDurations(ctx, videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func (y *YouTubeService) resolveDurations(ctx context.Context, videos []Video) error {
	for start := 0; start < len(videos); start += maxResults {
		end := min(start+maxResults, len(videos))

		ids := make([]string, 0, end-start)
		for _, v := range videos[start:end] {
			ids = append(ids, v.ID)
		}

		var list youtubeVideoList
		params := url.Values{"part": {"contentDetails"}, "id": {strings.Join(ids, ",")}}
		if err := y.doRequest(ctx, "/videos", params, &list); err != nil {
			return err
		}

		durations := make(map[string]int, len(list.Items))
		for _, item := range list.Items {
			if secs, err := ParseISODuration(item.ContentDetails.Duration); err == nil {
				durations[item.ID] = secs
			}
		}

		for i := start; i < end; i++ {
			if secs, ok := durations[videos[i].ID]; ok {
				videos[i].DurationS = &secs
			}
		}
	}
	return nil
}

// ParseISODuration converts an ISO 8601 duration as reported by the API ("PT1H2M3S", "P1DT5M")
// to seconds. Week and month designators are not used by the API and are rejected.
func ParseISODuration(s string) (int, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("%w: duration %q", shared.ErrInvalidArgument, s)
	}

	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q", shared.ErrInvalidArgument, s)
		}
		total += n * unit
	}
	return total, nil
}
