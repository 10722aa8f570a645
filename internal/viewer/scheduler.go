package viewer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/shared"
)

// TickInterval is how often the scheduler checks for a date rollover. Ticks cost no network call
// unless the date changed.
const TickInterval = time.Minute

// StatusSource answers whether the user checked in today; see [client.Client].
type StatusSource interface {
	CheckInStatus(ctx context.Context, courseID string) (*checkin.Status, error)
}

// EventKind identifies a scheduler [Event].
type EventKind int

const (
	// StatusUpdated carries the outcome of a status query. Err is set when the query failed, in which
	// case the user is treated as not checked in.
	StatusUpdated EventKind = iota
	// PromptCheckIn asks the viewer to open the check-in dialog.
	PromptCheckIn
)

// Event is emitted by a [Scheduler] on its Events channel.
type Event struct {
	Kind      EventKind
	Date      string
	CheckedIn bool
	Status    *checkin.Status
	Err       error
}

// Scheduler decides when the viewer asks for today's check-in status and when it prompts.
//
// It is created when a course viewer opens and stopped when it closes. [Scheduler.Start] queries
// once, then [Scheduler.OnTick] runs every [TickInterval] and [Scheduler.OnMidnight] at each midnight
// in the scheduler's location. A query's date is recorded when it is dispatched, so at most one
// query runs per date unless the midnight timer finds none has been sent for the new date yet.
type Scheduler struct {
	courseID string
	source   StatusSource
	clock    Clock
	loc      *time.Location
	logger   *log.Logger
	events   chan Event

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	ticker    Timer
	midnight  Timer
	started   bool
	stopped   bool
	lastDate  string
	checkedIn bool
	seq       uint64
	applied   uint64
}

// SchedulerOption configures a [Scheduler].
type SchedulerOption func(*Scheduler)

// WithClock replaces [SystemClock].
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithLocation sets where dates and midnight are computed. Defaults to [time.Local].
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger for failed queries.
func WithLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a stopped [Scheduler] for courseID.
func NewScheduler(source StatusSource, courseID string, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		courseID: courseID,
		source:   source,
		clock:    SystemClock{},
		loc:      time.Local,
		logger:   shared.NewLogger(io.Discard),
		events:   make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events delivers status updates and prompts. It is closed by [Scheduler.Stop].
func (s *Scheduler) Events() <-chan Event { return s.events }

// Start issues the initial status query and arms the tick and midnight timers.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.dispatch(s.today())
	s.ticker = s.clock.Every(TickInterval, s.OnTick)
	s.armMidnight()
}

// OnTick re-queries only when the date changed since the last dispatched query.
func (s *Scheduler) OnTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		return
	}
	if today := s.today(); today != s.lastDate {
		s.dispatch(today)
	}
}

// OnMidnight queries for the new date, unless a tick already did, and arms the next midnight.
func (s *Scheduler) OnMidnight() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		return
	}
	if today := s.today(); today != s.lastDate {
		s.dispatch(today)
	}
	s.armMidnight()
}

// MarkCheckedIn records a check-in made from the dialog for date (YYYY-MM-DD, as returned by the
// server) and reports whether it counts for the date the scheduler is tracking.
//
// A check-in for any other date leaves the status alone and queries the current date again, so a
// response that lands after midnight doesn't hide the new day's prompt.
func (s *Scheduler) MarkCheckedIn(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if date != "" && date == s.lastDate {
		s.checkedIn = true
		return true
	}

	s.logger.Debug("check-in is not for the tracked date", "course_id", s.courseID, "date", date, "tracked", s.lastDate)
	if s.running() {
		s.dispatch(s.today())
	}
	return false
}

// CheckedIn reports the last known status. Failed queries count as not checked in.
func (s *Scheduler) CheckedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkedIn
}

// Stop cancels in-flight queries, releases the timers, and closes Events. No events are sent
// after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.midnight != nil {
		s.midnight.Stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.events)
}

func (s *Scheduler) running() bool { return s.started && !s.stopped }

func (s *Scheduler) today() string {
	return shared.FormatDate(s.clock.Now(), s.loc)
}

func (s *Scheduler) armMidnight() {
	if s.midnight != nil {
		s.midnight.Stop()
	}
	wait := shared.UntilMidnight(s.clock.Now().In(s.loc))
	s.midnight = s.clock.AfterFunc(wait, s.OnMidnight)
}

// dispatch must be called with mu held.
func (s *Scheduler) dispatch(date string) {
	s.lastDate = date
	s.seq++
	seq, ctx := s.seq, s.ctx

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		status, err := s.source.CheckInStatus(ctx, s.courseID)

		s.mu.Lock()
		defer s.mu.Unlock()

		// an older query finishing after a newer one was applied is dropped
		if s.stopped || seq < s.applied {
			return
		}
		s.applied = seq

		if err != nil {
			s.logger.Debug("check-in status query failed", "course_id", s.courseID, "error", err)
			s.checkedIn = false
			s.send(Event{Kind: StatusUpdated, Date: date, Err: err})
			return
		}

		s.checkedIn = status.HasCheckedInToday
		s.send(Event{Kind: StatusUpdated, Date: date, CheckedIn: status.HasCheckedInToday, Status: status})
		if !status.HasCheckedInToday {
			s.send(Event{Kind: PromptCheckIn, Date: date})
		}
	}()
}

// send delivers an event without blocking. Must be called with mu held.
func (s *Scheduler) send(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.Warn("dropping scheduler event", "kind", e.Kind, "date", e.Date)
	}
}
