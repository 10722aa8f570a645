// package formatter exports courses and the user's progress to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
)

// Supported export formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every format accepted by [WriteCourseExport].
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// CourseExport is a course tree with the owner's completion map, keyed by video ID.
type CourseExport struct {
	Course   *models.Course  `json:"course"`
	Progress map[string]bool `json:"progress"`
}

// Completed counts the videos of the course marked complete.
func (e *CourseExport) Completed() int {
	n := 0
	for _, v := range e.Course.Videos() {
		if e.Progress[v.ID] {
			n++
		}
	}
	return n
}

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func videoDuration(v models.Video) string {
	if v.DurationS == nil {
		return ""
	}
	return FormatDuration(*v.DurationS)
}

// MarshalJSON encodes v as JSON, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ExportToCSV converts a CourseExport to CSV format with columns: Section, Position, YouTube ID, Title, Duration, Completed, URL
func ExportToCSV(export *CourseExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Section", "Position", "YouTube ID", "Title", "Duration", "Completed", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	pos := 0
	for _, section := range export.Course.Sections {
		for _, video := range section.Videos {
			pos++
			record := []string{
				section.Title,
				strconv.Itoa(pos),
				video.YouTubeID,
				video.Title,
				videoDuration(video),
				strconv.FormatBool(export.Progress[video.ID]),
				video.WatchURL(),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a CourseExport to a Markdown checklist grouped by section
func ExportToMarkdown(export *CourseExport) ([]byte, error) {
	var buf bytes.Buffer
	course := export.Course
	total := course.VideoCount()
	completed := export.Completed()

	buf.WriteString(fmt.Sprintf("# %s\n\n", course.Title))
	if thumb := course.Thumbnail(); thumb != nil {
		buf.WriteString(fmt.Sprintf("![Thumbnail](%s)\n\n", *thumb))
	}

	buf.WriteString(fmt.Sprintf("**Playlist**: https://www.youtube.com/playlist?list=%s\n", course.PlaylistID))
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n", total))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n", FormatDuration(course.TotalDurationS)))
	buf.WriteString(fmt.Sprintf("**Progress**: %d/%d (%d%%)\n", completed, total, dashboard.Percent(completed, total)))

	for i, section := range course.Sections {
		done := 0
		for _, v := range section.Videos {
			if export.Progress[v.ID] {
				done++
			}
		}
		buf.WriteString(fmt.Sprintf("\n## Section %d: %s (%d/%d)\n\n", i+1, section.Title, done, len(section.Videos)))

		for _, video := range section.Videos {
			mark := " "
			if export.Progress[video.ID] {
				mark = "x"
			}
			duration := ""
			if d := videoDuration(video); d != "" {
				duration = fmt.Sprintf(" [%s]", d)
			}
			buf.WriteString(fmt.Sprintf("- [%s] [%s](%s)%s\n", mark, video.Title, video.WatchURL(), duration))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a CourseExport to plain text format
func ExportToText(export *CourseExport) ([]byte, error) {
	var buf bytes.Buffer
	course := export.Course

	buf.WriteString(fmt.Sprintf("Course: %s\n", course.Title))
	buf.WriteString(fmt.Sprintf("Videos: %d (%d completed)\n", course.VideoCount(), export.Completed()))

	n := 0
	for i, section := range course.Sections {
		buf.WriteString(fmt.Sprintf("\nSection %d: %s\n", i+1, section.Title))
		for _, video := range section.Videos {
			n++
			mark := " "
			if export.Progress[video.ID] {
				mark = "✓"
			}
			buf.WriteString(fmt.Sprintf("%s %d. %s\n", mark, n, video.Title))
		}
	}

	return buf.Bytes(), nil
}

// WriteCourseExport writes the export into dir in the given format and returns the created files.
//
// Files are named after the course ID:
//   - json: {id}.json
//   - csv: {id}_videos.csv and {id}_metadata.json
//   - markdown: {id}/README.md
//   - txt: {id}_videos.txt
func WriteCourseExport(export *CourseExport, format, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	base := filepath.Join(dir, export.Course.ID)

	switch format {
	case FormatCSV:
		data, err := ExportToCSV(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSV: %w", err)
		}
		videosFile := base + "_videos.csv"
		if err := os.WriteFile(videosFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write CSV file: %w", err)
		}

		meta := *export.Course
		meta.Sections = nil
		metaJSON, err := MarshalJSON(meta, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}
		metadataFile := base + "_metadata.json"
		if err := os.WriteFile(metadataFile, metaJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write metadata file: %w", err)
		}
		return []string{videosFile, metadataFile}, nil

	case FormatMarkdown:
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		data, err := ExportToMarkdown(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Markdown: %w", err)
		}
		mdFile := filepath.Join(base, "README.md")
		if err := os.WriteFile(mdFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write Markdown file: %w", err)
		}
		return []string{mdFile}, nil

	case FormatText:
		data, err := ExportToText(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate text: %w", err)
		}
		txtFile := base + "_videos.txt"
		if err := os.WriteFile(txtFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write text file: %w", err)
		}
		return []string{txtFile}, nil

	case FormatJSON, "":
		data, err := MarshalJSON(export, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		jsonFile := base + ".json"
		if err := os.WriteFile(jsonFile, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{jsonFile}, nil

	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// CourseExportResult is the outcome of exporting one course in a bulk export.
type CourseExportResult struct {
	CourseID string   `json:"course_id"`
	Title    string   `json:"title"`
	Success  bool     `json:"success"`
	Files    []string `json:"files,omitempty"`
	Error    error    `json:"-"`
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalCourses      int                  `json:"total_courses"`
	SuccessfulExports int                  `json:"successful_exports"`
	FailedExports     int                  `json:"failed_exports"`
	OutputDirectory   string               `json:"output_directory"`
	ManifestPath      string               `json:"-"`
	Results           []CourseExportResult `json:"results"`
}

type manifestEntry struct {
	CourseExportResult
	Error string `json:"error,omitempty"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export to path.
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	entries := make([]manifestEntry, 0, len(result.Results))
	for _, r := range result.Results {
		e := manifestEntry{CourseExportResult: r}
		if r.Error != nil {
			e.Error = r.Error.Error()
		}
		entries = append(entries, e)
	}

	manifest := struct {
		ExportedAt        time.Time       `json:"exported_at"`
		Format            string          `json:"format"`
		TotalCourses      int             `json:"total_courses"`
		SuccessfulExports int             `json:"successful_exports"`
		FailedExports     int             `json:"failed_exports"`
		Results           []manifestEntry `json:"results"`
	}{
		ExportedAt:        time.Now().UTC(),
		Format:            format,
		TotalCourses:      result.TotalCourses,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Results:           entries,
	}

	data, err := MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
