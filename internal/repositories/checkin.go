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

// CheckInRepository persists daily [models.CheckIn] rows.
//
// The (user_id, course_id, check_in_date) unique index is the only coordination between concurrent
// requests; rows are never updated or deleted here.
type CheckInRepository struct {
	db *shared.DB
}

// NewCheckInRepository creates a new [CheckInRepository] with the given database connection
func NewCheckInRepository(db *shared.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

const checkInColumns = `id, user_id, course_id, check_in_date, mood, notes, created_at`

// Find retrieves the check-in for (userID, courseID, date), or [shared.ErrNotFound].
func (r *CheckInRepository) Find(ctx context.Context, userID, courseID, date string) (*models.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE user_id = ? AND course_id = ? AND check_in_date = ?`

	checkIn, err := r.scan(r.db.QueryRowContext(ctx, query, userID, courseID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: check-in for %s on %s", shared.ErrNotFound, courseID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query check-in: %w", err)
	}
	return checkIn, nil
}

// FindOrCreate inserts checkIn unless a row already exists for its (user, course, date) and returns
// the stored row. created reports whether this call inserted it; when false the existing row is
// returned unchanged and checkIn's mood and notes are discarded.
func (r *CheckInRepository) FindOrCreate(ctx context.Context, checkIn *models.CheckIn) (*models.CheckIn, bool, error) {
	if err := checkIn.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	var (
		stored  *models.CheckIn
		created bool
	)

	err := r.db.WithTx(ctx, func(tx *shared.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO check_ins (id, user_id, course_id, check_in_date, mood, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, course_id, check_in_date) DO NOTHING`,
			shared.GenerateID(), checkIn.UserID, checkIn.CourseID, checkIn.Date,
			nullString(checkIn.Mood), nullString(checkIn.Notes), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert check-in: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		created = rows == 1

		row := tx.QueryRowContext(ctx,
			`SELECT `+checkInColumns+` FROM check_ins WHERE user_id = ? AND course_id = ? AND check_in_date = ?`,
			checkIn.UserID, checkIn.CourseID, checkIn.Date,
		)
		stored, err = r.scan(row)
		if err != nil {
			return fmt.Errorf("failed to read check-in: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// ListByCourse retrieves the user's check-ins for a course, newest date first. limit <= 0 means no limit.
func (r *CheckInRepository) ListByCourse(ctx context.Context, userID, courseID string, limit int) ([]models.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE user_id = ? AND course_id = ? ORDER BY check_in_date DESC`
	args := []any{userID, courseID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer rows.Close()

	checkIns := []models.CheckIn{}
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkIns = append(checkIns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return checkIns, nil
}

func (r *CheckInRepository) scan(row scanner) (*models.CheckIn, error) {
	var (
		c     models.CheckIn
		mood  sql.NullString
		notes sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.Date, &mood, &notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Mood = stringPtr(mood)
	c.Notes = stringPtr(notes)
	return &c, nil
}
