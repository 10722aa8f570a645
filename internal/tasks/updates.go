package tasks

import (
	"fmt"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FetchVideos
	SplitSections
	SaveCourse
	ExportCourse
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchVideos:
		return "fetch_videos"
	case SplitSections:
		return "split_sections"
	case SaveCourse:
		return "save_course"
	case ExportCourse:
		return "export_course"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(source, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s from %s...", playlistID, source),
	}
}

func fetchVideosUpdate(pl *services.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchVideos,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d items), fetching videos...", pl.Title, pl.ItemCount),
		Data:    pl,
	}
}

func buildSectionsUpdate(videos, sections int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SplitSections,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Splitting %d videos into %d sections...", videos, sections),
	}
}

func savingCourseUpdate(title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCourse,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Saving course: %s...", title),
	}
}

func savedCourseUpdate(course *models.Course) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCourse,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Course created: %s (ID: %s)", course.Title, course.ID),
		Data:    course,
	}
}

func exportingCourseUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, title, filesCount),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
