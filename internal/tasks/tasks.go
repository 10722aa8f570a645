// package tasks implements playlist import and course export operations.
//
// The core abstraction is CourseEngine, which turns playlists into course trees and writes courses to disk.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/services"
	"github.com/desertthunder/pluto/internal/shared"
)

// DefaultVideosPerSection is used when the configured section size is not positive.
const DefaultVideosPerSection = 10

// ImportResult contains all data from an import operation.
type ImportResult struct {
	Playlist *services.Playlist // Source playlist metadata
	Course   *models.Course     // Saved course tree with generated IDs
	Skipped  int                // Playlist items that were not playable
}

// CourseStore persists and loads course trees.
type CourseStore interface {
	Create(ctx context.Context, course *models.Course) error
	GetTree(ctx context.Context, id, userID string) (*models.Course, error)
}

// ProgressStore reads a user's completion map for a course.
type ProgressStore interface {
	MapForCourse(ctx context.Context, userID, courseID string) (map[string]bool, error)
}

// Engine defines course operations backed by a playlist source.
type Engine interface {
	// Import reads a playlist and saves it as a course owned by userID.
	Import(ctx context.Context, progress chan<- ProgressUpdate, userID, playlistURL string) (*ImportResult, error)

	// BulkExport writes the given courses to disk concurrently.
	BulkExport(ctx context.Context, progress chan<- ProgressUpdate, userID string, ids []string, opts BulkExportOpts) (*BulkExportResult, error)
}

// CourseEngine implements Engine.
type CourseEngine struct {
	source           services.PlaylistSource
	courses          CourseStore
	progress         ProgressStore
	videosPerSection int
}

// NewCourseEngine creates a new CourseEngine. A non-positive videosPerSection uses [DefaultVideosPerSection].
func NewCourseEngine(source services.PlaylistSource, courses CourseStore, progress ProgressStore, videosPerSection int) *CourseEngine {
	if videosPerSection <= 0 {
		videosPerSection = DefaultVideosPerSection
	}
	return &CourseEngine{
		source:           source,
		courses:          courses,
		progress:         progress,
		videosPerSection: videosPerSection,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *CourseEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Import resolves the playlist ID from playlistURL, fetches its videos, splits them into sections and saves
// the course tree in one transaction.
func (e *CourseEngine) Import(ctx context.Context, progress chan<- ProgressUpdate, userID, playlistURL string) (*ImportResult, error) {
	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	if e.source == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	playlistID, err := services.ParsePlaylistURL(playlistURL)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchPlaylistUpdate(e.source.Name(), playlistID))
	playlist, err := e.source.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchVideosUpdate(playlist))
	videos, err := e.source.ListPlaylistVideos(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptyPlaylist, playlist.Title)
	}

	sections := BuildSections(videos, e.videosPerSection)
	e.sendProgress(progress, buildSectionsUpdate(len(videos), len(sections)))

	course := &models.Course{
		UserID:     userID,
		PlaylistID: playlist.ID,
		Title:      playlist.Title,
		Sections:   sections,
	}
	if course.Title == "" {
		course.Title = playlist.ID
	}

	e.sendProgress(progress, savingCourseUpdate(course.Title))
	if err := e.courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to save course: %w", err)
	}
	e.sendProgress(progress, savedCourseUpdate(course))

	return &ImportResult{
		Playlist: playlist,
		Course:   course,
		Skipped:  max(playlist.ItemCount-len(videos), 0),
	}, nil
}

// BuildSections splits videos, in playlist order, into consecutive sections of at most perSection videos.
//
// Sections are titled by the range of positions they cover ("Videos 1-10").
func BuildSections(videos []services.Video, perSection int) []models.Section {
	if perSection <= 0 {
		perSection = DefaultVideosPerSection
	}

	sections := make([]models.Section, 0, (len(videos)+perSection-1)/perSection)
	for start := 0; start < len(videos); start += perSection {
		end := min(start+perSection, len(videos))

		title := fmt.Sprintf("Videos %d-%d", start+1, end)
		if end-start == 1 {
			title = fmt.Sprintf("Video %d", start+1)
		}

		section := models.Section{
			Title:      title,
			OrderIndex: len(sections),
			Videos:     make([]models.Video, 0, end-start),
		}
		for i, v := range videos[start:end] {
			section.Videos = append(section.Videos, models.Video{
				YouTubeID:    v.ID,
				Title:        v.Title,
				DurationS:    v.DurationS,
				ThumbnailURL: v.ThumbnailURL,
				OrderIndex:   i,
			})
		}
		sections = append(sections, section)
	}
	return sections
}
