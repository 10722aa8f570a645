// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/services"
)

// MockPlaylistSource is a test double for [services.PlaylistSource]
type MockPlaylistSource struct {
	Playlist    *services.Playlist
	Videos      []services.Video
	PlaylistErr error
	VideosErr   error
	Calls       int
}

func (m *MockPlaylistSource) GetPlaylist(ctx context.Context, playlistID string) (*services.Playlist, error) {
	m.Calls++
	if m.PlaylistErr != nil {
		return nil, m.PlaylistErr
	}
	if m.Playlist == nil {
		return &services.Playlist{ID: playlistID, Title: "Mock Playlist"}, nil
	}
	return m.Playlist, nil
}

func (m *MockPlaylistSource) ListPlaylistVideos(ctx context.Context, playlistID string) ([]services.Video, error) {
	m.Calls++
	if m.VideosErr != nil {
		return nil, m.VideosErr
	}
	return m.Videos, nil
}

func (m *MockPlaylistSource) Name() string { return "mock" }

// MockVideos builds n playlist entries of 60s each with IDs v0..v{n-1}
func MockVideos(n int) []services.Video {
	videos := make([]services.Video, n)
	for i := range n {
		d := 60
		videos[i] = services.Video{
			ID:        fmt.Sprintf("v%d", i),
			Title:     fmt.Sprintf("Video %d", i+1),
			Position:  i,
			DurationS: &d,
		}
	}
	return videos
}

// NewCourse returns an unsaved course owned by userID with one section per entry of sizes,
// each video lasting 120s.
func NewCourse(userID, title string, sizes ...int) *models.Course {
	course := &models.Course{
		ID:         "course-" + title,
		UserID:     userID,
		PlaylistID: "PL" + title,
		Title:      title,
		CreatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	n := 0
	for si, size := range sizes {
		section := models.Section{
			ID:         fmt.Sprintf("%s-s%d", course.ID, si),
			CourseID:   course.ID,
			Title:      fmt.Sprintf("Part %d", si+1),
			OrderIndex: si,
		}
		for vi := range size {
			d := 120
			section.Videos = append(section.Videos, models.Video{
				ID:         fmt.Sprintf("%s-v%d", course.ID, n),
				SectionID:  section.ID,
				CourseID:   course.ID,
				YouTubeID:  fmt.Sprintf("yt%d", n),
				Title:      fmt.Sprintf("Lesson %d", n+1),
				DurationS:  &d,
				OrderIndex: vi,
			})
			n++
		}
		course.Sections = append(course.Sections, section)
	}
	course.TotalVideos = n
	course.TotalDurationS = n * 120
	return course
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
