// package checkin records and reports a user's daily check-in for a course.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

const (
	MessageRecorded       = "Check-in recorded!"
	MessageAlreadyChecked = "Already checked in today!"
)

// CourseFinder resolves a course only when userID owns it.
type CourseFinder interface {
	GetByIDAndOwner(ctx context.Context, id, userID string) (*models.Course, error)
}

// Store is the check-in persistence used by [Service]; see [repositories.CheckInRepository].
type Store interface {
	Find(ctx context.Context, userID, courseID, date string) (*models.CheckIn, error)
	FindOrCreate(ctx context.Context, checkIn *models.CheckIn) (*models.CheckIn, bool, error)
	ListByCourse(ctx context.Context, userID, courseID string, limit int) ([]models.CheckIn, error)
}

// Status reports whether today's check-in exists.
type Status struct {
	HasCheckedInToday bool            `json:"hasCheckedInToday"`
	CheckIn           *models.CheckIn `json:"checkIn"`
}

// Input is the optional mood and notes submitted with a check-in. Empty values are stored as absent.
type Input struct {
	Mood  string `json:"mood" validate:"omitempty,max=32"`
	Notes string `json:"notes" validate:"omitempty,max=200"`
}

// Result is the outcome of [Service.Record]. Created is false when today's row already existed,
// in which case CheckIn is that row, unchanged.
type Result struct {
	Created bool
	Message string
	CheckIn *models.CheckIn
}

// History is a course's recent check-ins plus the current streak of consecutive days.
type History struct {
	CheckIns []models.CheckIn `json:"checkIns"`
	Streak   int              `json:"streak"`
}

// Service implements the daily check-in operations.
//
// "Today" is the calendar date of the service clock in the configured location; there is no
// per-request timezone.
type Service struct {
	courses  CourseFinder
	store    Store
	loc      *time.Location
	now      func() time.Time
	validate *validator.Validate
	logger   *log.Logger
}

// Option configures a [Service].
type Option func(*Service)

// WithLocation sets the timezone that defines the day boundary.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces [time.Now].
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a check-in [Service] that computes dates in UTC unless configured otherwise.
func NewService(courses CourseFinder, store Store, opts ...Option) *Service {
	s := &Service{
		courses:  courses,
		store:    store,
		loc:      time.UTC,
		now:      time.Now,
		validate: validator.New(),
		logger:   shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current check-in date key.
func (s *Service) Today() string {
	return shared.FormatDate(s.now(), s.loc)
}

// TodayStatus looks up today's check-in for the course without side effects.
func (s *Service) TodayStatus(ctx context.Context, userID, courseID string) (*Status, error) {
	if err := s.authorize(ctx, userID, courseID); err != nil {
		return nil, err
	}

	today := s.Today()
	checkIn, err := s.store.Find(ctx, userID, courseID, today)
	if errors.Is(err, shared.ErrNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, s.internal("check-in status", err, "course_id", courseID)
	}

	return &Status{HasCheckedInToday: true, CheckIn: checkIn}, nil
}

// Record creates today's check-in if none exists. A second call on the same day returns the
// existing row with Created false; both outcomes are successes.
func (s *Service) Record(ctx context.Context, userID, courseID string, in Input) (*Result, error) {
	if err := s.authorize(ctx, userID, courseID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	checkIn, created, err := s.store.FindOrCreate(ctx, &models.CheckIn{
		UserID:   userID,
		CourseID: courseID,
		Date:     s.Today(),
		Mood:     models.OptionalString(in.Mood),
		Notes:    models.OptionalString(in.Notes),
	})
	if err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			return nil, err
		}
		return nil, s.internal("record check-in", err, "course_id", courseID)
	}

	result := &Result{Created: created, CheckIn: checkIn, Message: MessageAlreadyChecked}
	if created {
		result.Message = MessageRecorded
	}
	return result, nil
}

// History returns up to limit recent check-ins, newest first, and the current streak.
func (s *Service) History(ctx context.Context, userID, courseID string, limit int) (*History, error) {
	if err := s.authorize(ctx, userID, courseID); err != nil {
		return nil, err
	}

	all, err := s.store.ListByCourse(ctx, userID, courseID, 0)
	if err != nil {
		return nil, s.internal("check-in history", err, "course_id", courseID)
	}

	dates := make([]string, len(all))
	for i, c := range all {
		dates[i] = c.Date
	}

	h := &History{CheckIns: all, Streak: Streak(dates, s.Today())}
	if limit > 0 && len(h.CheckIns) > limit {
		h.CheckIns = h.CheckIns[:limit]
	}
	return h, nil
}

func (s *Service) authorize(ctx context.Context, userID, courseID string) error {
	if userID == "" {
		return shared.ErrUnauthorized
	}

	if _, err := s.courses.GetByIDAndOwner(ctx, courseID, userID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return s.internal("course lookup", err, "course_id", courseID)
	}
	return nil
}

func (s *Service) internal(op string, err error, kv ...any) error {
	s.logger.With(kv...).Error(op+" failed", "error", err)
	return fmt.Errorf("%w: %s: %v", shared.ErrInternal, op, err)
}

// Streak counts consecutive days in dates (newest first, YYYY-MM-DD) ending today or yesterday.
// A streak that has not been extended since before yesterday is zero.
func Streak(dates []string, today string) int {
	day, err := time.Parse(shared.DateLayout, today)
	if err != nil || len(dates) == 0 {
		return 0
	}

	if dates[0] != today {
		day = day.AddDate(0, 0, -1)
		if dates[0] != day.Format(shared.DateLayout) {
			return 0
		}
	}

	streak := 0
	for _, d := range dates {
		if d != day.Format(shared.DateLayout) {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
