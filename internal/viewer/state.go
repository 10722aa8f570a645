package viewer

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
)

// Position addresses a video by section and index within the section.
type Position struct {
	Section int
	Video   int
}

// Totals is the viewer's completion summary.
type Totals struct {
	Total     int
	Completed int
	Percent   int
}

// Toggler sends a completion change to the server; see [client.Client].
type Toggler interface {
	ToggleProgress(ctx context.Context, videoID string, completed bool) (*models.Progress, error)
}

// State is the in-memory course viewer: the current position plus two completion maps.
//
// local holds what the user sees and changes immediately on toggle. confirmed holds what the server
// has acknowledged. Local wins until the state is rebuilt from a fresh load; failed toggles are
// neither retried nor rolled back.
type State struct {
	course  *models.Course
	flat    []models.Video
	current Position

	mu        sync.Mutex
	local     map[string]bool
	confirmed map[string]bool
	logger    *log.Logger
}

// NewState seeds both completion maps from the server's progress map.
func NewState(course *models.Course, progress map[string]bool, logger *log.Logger) *State {
	s := &State{
		course:    course,
		flat:      course.Videos(),
		local:     make(map[string]bool, len(progress)),
		confirmed: make(map[string]bool, len(progress)),
		logger:    logger,
	}
	for id, done := range progress {
		s.local[id] = done
		s.confirmed[id] = done
	}
	s.current = s.first()
	return s
}

func (s *State) Course() *models.Course { return s.course }

func (s *State) Position() Position { return s.current }

// Current returns the video under the cursor.
func (s *State) Current() (models.Video, bool) {
	return s.at(s.current)
}

func (s *State) at(p Position) (models.Video, bool) {
	if p.Section < 0 || p.Section >= len(s.course.Sections) {
		return models.Video{}, false
	}
	videos := s.course.Sections[p.Section].Videos
	if p.Video < 0 || p.Video >= len(videos) {
		return models.Video{}, false
	}
	return videos[p.Video], true
}

// first is the first position holding a video, or (0, 0).
func (s *State) first() Position {
	for i, sec := range s.course.Sections {
		if len(sec.Videos) > 0 {
			return Position{Section: i}
		}
	}
	return Position{}
}

// Select moves the cursor to p if it addresses a video.
func (s *State) Select(p Position) bool {
	if _, ok := s.at(p); !ok {
		return false
	}
	s.current = p
	return true
}

// Next advances within the section, then to the first video of the following non-empty section.
// It does nothing on the last video.
func (s *State) Next() bool {
	p := s.current
	if p.Section < len(s.course.Sections) && p.Video+1 < len(s.course.Sections[p.Section].Videos) {
		s.current.Video++
		return true
	}
	for i := p.Section + 1; i < len(s.course.Sections); i++ {
		if len(s.course.Sections[i].Videos) > 0 {
			s.current = Position{Section: i}
			return true
		}
	}
	return false
}

// Prev steps back within the section, then to the last video of the previous non-empty section.
func (s *State) Prev() bool {
	p := s.current
	if p.Video > 0 {
		s.current.Video--
		return true
	}
	for i := p.Section - 1; i >= 0; i-- {
		if n := len(s.course.Sections[i].Videos); n > 0 {
			s.current = Position{Section: i, Video: n - 1}
			return true
		}
	}
	return false
}

// Index is the 1-based position of the current video across the whole course, 0 when empty.
func (s *State) Index() int {
	cur, ok := s.Current()
	if !ok {
		return 0
	}
	for i, v := range s.flat {
		if v.ID == cur.ID {
			return i + 1
		}
	}
	return 0
}

// Len is the number of videos in the course.
func (s *State) Len() int { return len(s.flat) }

// Completed reports the local completion of a video.
func (s *State) Completed(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local[videoID]
}

// Confirmed reports the server-acknowledged completion of a video and whether one is known.
func (s *State) Confirmed(videoID string) (completed, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	completed, known = s.confirmed[videoID]
	return completed, known
}

// Pending lists videos whose local completion the server has not acknowledged.
func (s *State) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []string
	for _, v := range s.flat {
		if s.local[v.ID] != s.confirmed[v.ID] {
			pending = append(pending, v.ID)
		}
	}
	return pending
}

// Totals counts completed videos of this course from the local map.
func (s *State) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Totals{Total: len(s.flat)}
	for _, v := range s.flat {
		if s.local[v.ID] {
			t.Completed++
		}
	}
	t.Percent = dashboard.Percent(t.Completed, t.Total)
	return t
}

// SectionCompleted counts locally completed videos in section i.
func (s *State) SectionCompleted(i int) int {
	if i < 0 || i >= len(s.course.Sections) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.course.Sections[i].Videos {
		if s.local[v.ID] {
			n++
		}
	}
	return n
}

// ToggleCurrent flips the current video locally and sends the change in the background.
//
// The returned channel is closed when the request finishes; callers may ignore it. It is nil when
// there is no current video.
func (s *State) ToggleCurrent(ctx context.Context, api Toggler) <-chan struct{} {
	video, ok := s.Current()
	if !ok {
		return nil
	}

	s.mu.Lock()
	completed := !s.local[video.ID]
	s.local[video.ID] = completed
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p, err := api.ToggleProgress(ctx, video.ID, completed)
		if err != nil {
			if s.logger != nil {
				s.logger.Debug("progress toggle failed", "video_id", video.ID, "error", err)
			}
			return
		}

		s.mu.Lock()
		s.confirmed[video.ID] = p.Completed
		s.mu.Unlock()
	}()
	return done
}
