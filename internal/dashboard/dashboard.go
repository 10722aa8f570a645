// package dashboard derives per-course progress cards and account-level KPIs.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

// Card summarizes one course for the dashboard grid.
type Card struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	CreatedAt       time.Time  `json:"createdAt"`
	TotalVideos     int        `json:"totalVideos"`
	CompletedVideos int        `json:"completedVideos"`
	Percent         int        `json:"percent"`
	TotalDurationS  int        `json:"totalDurationS"`
	Thumbnail       *string    `json:"thumb"`
	LastWatchedAt   *time.Time `json:"lastWatchedAt"`
}

// Completed reports whether every video of the course is done.
func (c Card) Completed() bool { return c.Percent == 100 }

// KPIs are the account-level totals shown above the grid.
type KPIs struct {
	TotalCourses      int    `json:"totalCourses"`
	CompletedCourses  int    `json:"completedCourses"`
	InProgressCourses int    `json:"inProgressCourses"`
	CompletionRate    int    `json:"completionRate"`
	TotalWatchTimeS   int    `json:"totalWatchTimeS"`
	TotalWatchTime    string `json:"totalWatchTime"`
}

// Dashboard is the aggregated view for a user.
type Dashboard struct {
	Courses []Card `json:"courses"`
	KPIs    KPIs   `json:"kpis"`
}

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// FormatWatchTime renders seconds as "Xh Ym" using whole minutes rounded to the nearest minute.
func FormatWatchTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(math.Round(float64(seconds) / 60))
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// Aggregate builds the dashboard from courses (in display order, trees loaded) and the user's
// completed progress rows. Progress for videos outside the given courses is ignored.
func Aggregate(courses []*models.Course, completed []models.Progress) Dashboard {
	done := make(map[string]*time.Time, len(completed))
	for _, p := range completed {
		if p.Completed {
			done[p.VideoID] = p.CompletedAt
		}
	}

	d := Dashboard{Courses: make([]Card, 0, len(courses))}
	for _, c := range courses {
		card := Card{
			ID:             c.ID,
			Title:          c.Title,
			CreatedAt:      c.CreatedAt,
			TotalDurationS: c.TotalDurationS,
			Thumbnail:      c.Thumbnail(),
		}

		for _, v := range c.Videos() {
			card.TotalVideos++
			at, ok := done[v.ID]
			if !ok {
				continue
			}
			card.CompletedVideos++
			if at != nil && (card.LastWatchedAt == nil || at.After(*card.LastWatchedAt)) {
				t := *at
				card.LastWatchedAt = &t
			}
		}
		card.Percent = Percent(card.CompletedVideos, card.TotalVideos)

		d.Courses = append(d.Courses, card)
		d.KPIs.TotalWatchTimeS += card.TotalDurationS
		if card.Completed() {
			d.KPIs.CompletedCourses++
		}
	}

	d.KPIs.TotalCourses = len(d.Courses)
	d.KPIs.InProgressCourses = max(d.KPIs.TotalCourses-d.KPIs.CompletedCourses, 0)
	d.KPIs.CompletionRate = Percent(d.KPIs.CompletedCourses, d.KPIs.TotalCourses)
	d.KPIs.TotalWatchTime = FormatWatchTime(d.KPIs.TotalWatchTimeS)
	return d
}

// CourseLister loads a user's courses, newest first, with sections and videos.
type CourseLister interface {
	ListByOwner(ctx context.Context, userID string) ([]*models.Course, error)
}

// ProgressLister loads a user's completed progress rows.
type ProgressLister interface {
	ListCompleted(ctx context.Context, userID string) ([]models.Progress, error)
}

// Service loads dashboard inputs from the store on every call.
type Service struct {
	courses  CourseLister
	progress ProgressLister
}

// NewService creates a dashboard [Service].
func NewService(courses CourseLister, progress ProgressLister) *Service {
	return &Service{courses: courses, progress: progress}
}

// Build loads the user's courses and completed progress and aggregates them.
func (s *Service) Build(ctx context.Context, userID string) (*Dashboard, error) {
	if userID == "" {
		return nil, shared.ErrUnauthorized
	}

	courses, err := s.courses.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list courses: %v", shared.ErrInternal, err)
	}

	completed, err := s.progress.ListCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list progress: %v", shared.ErrInternal, err)
	}

	d := Aggregate(courses, completed)
	return &d, nil
}
