package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

// CourseRepository persists [models.Course] trees (course, sections, videos).
//
// Every read is scoped to an owner: a course that exists but belongs to someone else is reported
// as [shared.ErrNotFound].
type CourseRepository struct {
	db *shared.DB
}

// NewCourseRepository creates a new [CourseRepository] with the given database connection
func NewCourseRepository(db *shared.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `c.id, c.user_id, c.playlist_id, c.title, c.total_videos, c.total_duration_s, c.created_at, c.updated_at`

// Create inserts the course with all of its sections and videos in one transaction, assigning IDs
// and recomputing the video and duration totals from the tree.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if err := course.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	course.ID = shared.GenerateID()
	course.CreatedAt = now
	course.UpdatedAt = now
	course.TotalVideos = course.VideoCount()
	course.TotalDurationS = 0
	for _, v := range course.Videos() {
		if v.DurationS != nil {
			course.TotalDurationS += *v.DurationS
		}
	}

	return r.db.WithTx(ctx, func(tx *shared.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO courses (id, user_id, playlist_id, title, total_videos, total_duration_s, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			course.ID, course.UserID, course.PlaylistID, course.Title, course.TotalVideos, course.TotalDurationS,
			course.CreatedAt, course.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert course: %w", err)
		}

		for si := range course.Sections {
			section := &course.Sections[si]
			section.ID = shared.GenerateID()
			section.CourseID = course.ID
			section.OrderIndex = si

			_, err := tx.ExecContext(ctx,
				`INSERT INTO sections (id, course_id, title, order_index) VALUES (?, ?, ?, ?)`,
				section.ID, section.CourseID, section.Title, section.OrderIndex,
			)
			if err != nil {
				return fmt.Errorf("failed to insert section %d: %w", si, err)
			}

			for vi := range section.Videos {
				video := &section.Videos[vi]
				video.ID = shared.GenerateID()
				video.SectionID = section.ID
				video.CourseID = course.ID
				video.OrderIndex = vi

				_, err := tx.ExecContext(ctx, `
					INSERT INTO videos (id, section_id, course_id, youtube_id, title, duration_s, thumbnail_url, order_index)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					video.ID, video.SectionID, video.CourseID, video.YouTubeID, video.Title,
					nullInt(video.DurationS), nullString(video.ThumbnailURL), video.OrderIndex,
				)
				if err != nil {
					return fmt.Errorf("failed to insert video %s: %w", video.YouTubeID, err)
				}
			}
		}
		return nil
	})
}

// GetByIDAndOwner retrieves a course row without its tree.
func (r *CourseRepository) GetByIDAndOwner(ctx context.Context, id, userID string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.id = ? AND c.user_id = ?`

	course, err := r.scan(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: course %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query course: %w", err)
	}
	return course, nil
}

// GetTree retrieves a course with its sections and videos ordered by their order index.
func (r *CourseRepository) GetTree(ctx context.Context, id, userID string) (*models.Course, error) {
	course, err := r.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	courses := []*models.Course{course}
	if err := r.loadTrees(ctx, courses, "c.id = ?", id); err != nil {
		return nil, err
	}
	return course, nil
}

// ListByOwner retrieves the user's courses, newest first, with sections and videos loaded.
func (r *CourseRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.user_id = ? ORDER BY c.created_at DESC, c.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		course, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if len(courses) == 0 {
		return courses, nil
	}
	if err := r.loadTrees(ctx, courses, "c.user_id = ?", userID); err != nil {
		return nil, err
	}
	return courses, nil
}

// VideoCourseID resolves the course of a video owned by userID.
func (r *CourseRepository) VideoCourseID(ctx context.Context, videoID, userID string) (string, error) {
	query := `
		SELECT v.course_id
		FROM videos v
		JOIN courses c ON c.id = v.course_id
		WHERE v.id = ? AND c.user_id = ?
	`

	var courseID string
	err := r.db.QueryRowContext(ctx, query, videoID, userID).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: video %s", shared.ErrNotFound, videoID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query video: %w", err)
	}
	return courseID, nil
}

// Delete removes a course and, through cascading keys, its sections, videos, progress, and check-ins.
func (r *CourseRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: course %s", shared.ErrNotFound, id)
	}
	return nil
}

// loadTrees fills Sections for courses using two queries filtered by where over the courses table.
func (r *CourseRepository) loadTrees(ctx context.Context, courses []*models.Course, where string, arg any) error {
	byID := make(map[string]*models.Course, len(courses))
	for _, c := range courses {
		c.Sections = []models.Section{}
		byID[c.ID] = c
	}

	sectionRows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.course_id, s.title, s.order_index
		FROM sections s
		JOIN courses c ON c.id = s.course_id
		WHERE `+where+`
		ORDER BY s.course_id, s.order_index`, arg)
	if err != nil {
		return fmt.Errorf("failed to query sections: %w", err)
	}
	defer sectionRows.Close()

	for sectionRows.Next() {
		s := models.Section{Videos: []models.Video{}}
		if err := sectionRows.Scan(&s.ID, &s.CourseID, &s.Title, &s.OrderIndex); err != nil {
			return fmt.Errorf("failed to scan section: %w", err)
		}
		if c, ok := byID[s.CourseID]; ok {
			c.Sections = append(c.Sections, s)
		}
	}
	if err := sectionRows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	// sections are final now, so pointers into the slices stay valid
	sections := make(map[string]*models.Section)
	for _, c := range courses {
		for i := range c.Sections {
			sections[c.Sections[i].ID] = &c.Sections[i]
		}
	}

	videoRows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.section_id, v.course_id, v.youtube_id, v.title, v.duration_s, v.thumbnail_url, v.order_index
		FROM videos v
		JOIN courses c ON c.id = v.course_id
		WHERE `+where+`
		ORDER BY v.section_id, v.order_index`, arg)
	if err != nil {
		return fmt.Errorf("failed to query videos: %w", err)
	}
	defer videoRows.Close()

	for videoRows.Next() {
		var (
			v        models.Video
			duration sql.NullInt64
			thumb    sql.NullString
		)
		err := videoRows.Scan(&v.ID, &v.SectionID, &v.CourseID, &v.YouTubeID, &v.Title, &duration, &thumb, &v.OrderIndex)
		if err != nil {
			return fmt.Errorf("failed to scan video: %w", err)
		}
		v.DurationS = intPtr(duration)
		v.ThumbnailURL = stringPtr(thumb)

		if s, ok := sections[v.SectionID]; ok {
			s.Videos = append(s.Videos, v)
		}
	}
	return videoRows.Err()
}

func (r *CourseRepository) scan(row scanner) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.UserID, &c.PlaylistID, &c.Title, &c.TotalVideos, &c.TotalDurationS, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
