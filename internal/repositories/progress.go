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

// ProgressRepository persists per-user video completion, one row per (user, video).
type ProgressRepository struct {
	db *shared.DB
}

// NewProgressRepository creates a new [ProgressRepository] with the given database connection
func NewProgressRepository(db *shared.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, user_id, video_id, completed, completed_at, watch_time_s, created_at, updated_at`

// Upsert sets the completion flag for (userID, videoID), creating the row on first toggle.
//
// completed_at is set to at when completed is true and cleared otherwise.
func (r *ProgressRepository) Upsert(ctx context.Context, userID, videoID string, completed bool, at time.Time) (*models.Progress, error) {
	p := &models.Progress{UserID: userID, VideoID: videoID}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	at = at.UTC()
	var completedAt *time.Time
	if completed {
		completedAt = &at
	}

	query := `
		INSERT INTO progress (id, user_id, video_id, completed, completed_at, watch_time_s, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, shared.GenerateID(), userID, videoID, completed, nullTime(completedAt), at, at)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert progress: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM progress WHERE user_id = ? AND video_id = ?`, userID, videoID)
	saved, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: progress for video %s", shared.ErrNotFound, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	return saved, nil
}

// ListCompleted retrieves every completed progress row for the user.
func (r *ProgressRepository) ListCompleted(ctx context.Context, userID string) ([]models.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = ? AND completed = ? ORDER BY completed_at`

	rows, err := r.db.QueryContext(ctx, query, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var progress []models.Progress
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		progress = append(progress, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return progress, nil
}

// MapForCourse returns videoID → completed for every progress row the user has in the course.
func (r *ProgressRepository) MapForCourse(ctx context.Context, userID, courseID string) (map[string]bool, error) {
	query := `
		SELECT p.video_id, p.completed
		FROM progress p
		JOIN videos v ON v.id = p.video_id
		WHERE p.user_id = ? AND v.course_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	progress := make(map[string]bool)
	for rows.Next() {
		var (
			videoID   string
			completed bool
		)
		if err := rows.Scan(&videoID, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		progress[videoID] = completed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return progress, nil
}

func (r *ProgressRepository) scan(row scanner) (*models.Progress, error) {
	var (
		p           models.Progress
		completedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.VideoID, &p.Completed, &completedAt, &p.WatchTimeS, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CompletedAt = timePtr(completedAt)
	return &p, nil
}
