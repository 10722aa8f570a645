// package models defines the data model for the course tracking service
package models

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

const (
	// MaxNotesLength caps check-in notes, counted in characters.
	MaxNotesLength = 200
	// MaxMoodLength caps the stored mood key.
	MaxMoodLength = 32
)

// Mood keys offered by the check-in dialog. The store accepts any short string.
const (
	MoodAmazing    = "amazing"
	MoodGreat      = "great"
	MoodOkay       = "okay"
	MoodStruggling = "struggling"
	MoodTired      = "tired"
	MoodFocused    = "focused"
)

// Moods lists the dialog's mood options in display order.
var Moods = []string{MoodAmazing, MoodGreat, MoodOkay, MoodStruggling, MoodTired, MoodFocused}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Model is implemented by every persisted entity.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// User is an account resolved from the identity provider by email.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks that the user has an email.
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

// Course is a playlist imported for one owner, split into ordered sections.
type Course struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	PlaylistID     string    `json:"playlistId"`
	Title          string    `json:"title"`
	TotalVideos    int       `json:"totalVideos"`
	TotalDurationS int       `json:"totalDurationS"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Sections       []Section `json:"sections"`
}

// Validate checks that the course has an owner and a title.
func (c *Course) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("course owner is required")
	}
	if c.Title == "" {
		return fmt.Errorf("course title is required")
	}
	return nil
}

// Videos returns every video of the course in section then video order.
func (c *Course) Videos() []Video {
	var videos []Video
	for _, s := range c.Sections {
		videos = append(videos, s.Videos...)
	}
	return videos
}

// VideoCount counts the videos present in the loaded sections.
func (c *Course) VideoCount() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Videos)
	}
	return n
}

// Thumbnail returns the first video's thumbnail, if any.
func (c *Course) Thumbnail() *string {
	for _, s := range c.Sections {
		if len(s.Videos) > 0 {
			return s.Videos[0].ThumbnailURL
		}
	}
	return nil
}

// Section groups consecutive videos of a course.
type Section struct {
	ID         string  `json:"id"`
	CourseID   string  `json:"courseId"`
	Title      string  `json:"title"`
	OrderIndex int     `json:"orderIndex"`
	Videos     []Video `json:"videos"`
}

// Video is one playlist entry. Duration and thumbnail are unknown for private or deleted videos.
type Video struct {
	ID           string  `json:"id"`
	SectionID    string  `json:"sectionId"`
	CourseID     string  `json:"courseId"`
	YouTubeID    string  `json:"youtubeId"`
	Title        string  `json:"title"`
	DurationS    *int    `json:"durationS"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	OrderIndex   int     `json:"orderIndex"`
}

// Duration returns the video length, zero when unknown.
func (v Video) Duration() time.Duration {
	if v.DurationS == nil {
		return 0
	}
	return time.Duration(*v.DurationS) * time.Second
}

// WatchURL is the public YouTube page for the video.
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.YouTubeID
}

// Progress records whether a user completed a video.
type Progress struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	VideoID     string     `json:"videoId"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	WatchTimeS  int        `json:"watchTimeS"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate checks that the record names both its user and its video.
func (p *Progress) Validate() error {
	if p.UserID == "" || p.VideoID == "" {
		return fmt.Errorf("progress requires a user and a video")
	}
	return nil
}

// CheckIn is a user's daily check-in for a course. At most one exists per (user, course, date).
type CheckIn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	Date      string    `json:"checkInDate"`
	Mood      *string   `json:"mood"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks ownership, the YYYY-MM-DD date, and the mood and notes length limits.
func (c *CheckIn) Validate() error {
	if c.UserID == "" || c.CourseID == "" {
		return fmt.Errorf("check-in requires a user and a course")
	}
	if !datePattern.MatchString(c.Date) {
		return fmt.Errorf("check-in date must be YYYY-MM-DD, got %q", c.Date)
	}
	if c.Mood != nil && utf8.RuneCountInString(*c.Mood) > MaxMoodLength {
		return fmt.Errorf("mood exceeds %d characters", MaxMoodLength)
	}
	if c.Notes != nil && utf8.RuneCountInString(*c.Notes) > MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters", MaxNotesLength)
	}
	return nil
}

// OptionalString maps "" to nil so empty form values are stored as absent.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
