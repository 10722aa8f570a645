package ui

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/client"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
	"github.com/desertthunder/pluto/internal/viewer"
)

// narrowWidth is the terminal width below which the viewer shows a warning banner.
const narrowWidth = 60

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CourseListView ViewState = iota
	LoadingView
	CourseView
)

// API is the part of [client.Client] used by the viewer.
type API interface {
	viewer.StatusSource
	viewer.Toggler
	Dashboard(ctx context.Context) (*dashboard.Dashboard, error)
	GetCourse(ctx context.Context, courseID string) (*client.Course, error)
	RecordCheckIn(ctx context.Context, courseID string, in checkin.Input) (*client.CheckInResult, error)
}

// Options configures a [Model]. Zero values select the system clock, local time, a discarding
// logger, and [shared.OpenBrowser].
type Options struct {
	Logger   *log.Logger
	Clock    viewer.Clock
	Location *time.Location
	OpenURL  func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	api    API
	opts   Options
	logger *log.Logger

	view     ViewState
	width    int
	height   int
	courseID string
	fromList bool

	courseList list.Model
	listReady  bool

	state     *viewer.State
	scheduler *viewer.Scheduler
	checkedIn bool
	statusErr error
	dialog    *CheckInDialog

	bannerDismissed bool
	flash           string
	err             error

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates the viewer. With an empty courseID it starts on the course list.
func NewModel(ctx context.Context, api API, courseID string, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	view := CourseListView
	if courseID != "" {
		view = LoadingView
	}

	return &Model{
		ctx:      ctx,
		api:      api,
		opts:     opts,
		logger:   opts.Logger,
		view:     view,
		courseID: courseID,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the course, or the course list when no course was given.
func (m *Model) Init() tea.Cmd {
	if m.courseID != "" {
		return tea.Batch(m.spinner.Tick, m.loadCourse(m.courseID))
	}
	return tea.Batch(m.spinner.Tick, m.fetchCourses())
}

// Close stops the check-in scheduler. It is safe to call more than once.
func (m *Model) Close() {
	if m.scheduler != nil {
		m.scheduler.Stop()
		m.scheduler = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.courseList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if m.dialog != nil {
			return m.handleDialogKeys(msg)
		}
		switch m.view {
		case CourseListView:
			return m.handleListKeys(msg)
		case CourseView:
			return m.handleCourseKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				m.Close()
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) busy() bool {
	return m.view == LoadingView || (m.dialog != nil && m.dialog.submitting)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCoursesFetched:
		data := msg.data.(coursesFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.courseList = list.New(courseItems(data.dashboard.Courses), list.NewDefaultDelegate(), 0, 0)
		m.courseList.Title = "Your Courses"
		m.courseList.SetSize(m.width-4, m.height-8)
		m.listReady = true
		m.view = CourseListView
		return m, nil

	case MsgCourseLoaded:
		data := msg.data.(courseLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		return m, m.openCourse(data.course)

	case MsgSchedulerEvent:
		data := msg.data.(schedulerEvent)
		if data.scheduler != m.scheduler {
			return m, nil
		}
		switch data.event.Kind {
		case viewer.StatusUpdated:
			m.checkedIn = data.event.CheckedIn
			m.statusErr = data.event.Err
		case viewer.PromptCheckIn:
			if m.dialog == nil && !m.scheduler.CheckedIn() {
				m.dialog = newCheckInDialog(m.state.Course().Title)
			}
		}
		return m, waitForEvent(m.scheduler)

	case MsgCheckInDone:
		data := msg.data.(checkInDone)
		if m.dialog == nil {
			return m, nil
		}
		if data.err != nil {
			m.logger.Warn("check-in failed", "course_id", m.state.Course().ID, "err", data.err)
			m.dialog.Failed(data.err)
			return m, nil
		}
		m.dialog = nil
		m.flash = data.result.Message

		date := ""
		if data.result.CheckIn != nil {
			date = data.result.CheckIn.Date
		}
		if m.scheduler == nil || m.scheduler.MarkCheckedIn(date) {
			m.checkedIn = true
			m.statusErr = nil
		}
		return m, nil

	case MsgBrowserOpened:
		if err, _ := msg.data.(error); err != nil {
			m.flash = fmt.Sprintf("Could not open browser: %v", err)
		} else {
			m.flash = "Opened in browser"
		}
		return m, nil
	}

	return m, nil
}

// openCourse builds the viewer state and starts a scheduler for the course.
func (m *Model) openCourse(course *client.Course) tea.Cmd {
	m.Close()

	m.state = viewer.NewState(course.Course, course.Progress, m.logger)
	m.checkedIn = false
	m.statusErr = nil
	m.dialog = nil
	m.flash = ""
	m.view = CourseView

	opts := []viewer.SchedulerOption{viewer.WithLogger(m.logger)}
	if m.opts.Clock != nil {
		opts = append(opts, viewer.WithClock(m.opts.Clock))
	}
	if m.opts.Location != nil {
		opts = append(opts, viewer.WithLocation(m.opts.Location))
	}
	m.scheduler = viewer.NewScheduler(m.api, course.Course.ID, opts...)
	m.scheduler.Start(m.ctx)

	return waitForEvent(m.scheduler)
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.listReady && m.courseList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if !m.listReady {
			return m, nil
		}
		if item, ok := m.courseList.SelectedItem().(courseItem); ok {
			m.fromList = true
			m.view = LoadingView
			return m, tea.Batch(m.spinner.Tick, m.loadCourse(item.card.ID))
		}
		return m, nil
	}
	return m.updateList(msg)
}

func (m *Model) handleCourseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if !m.fromList {
			return m, nil
		}
		m.Close()
		m.state = nil
		m.view = LoadingView
		return m, tea.Batch(m.spinner.Tick, m.fetchCourses())
	case key.Matches(msg, m.keys.down):
		m.flash = ""
		m.state.Next()
	case key.Matches(msg, m.keys.up):
		m.flash = ""
		m.state.Prev()
	case key.Matches(msg, m.keys.toggle):
		return m, waitForToggle(m.state.ToggleCurrent(m.ctx, m.api))
	case key.Matches(msg, m.keys.open):
		if video, ok := m.state.Current(); ok {
			return m, m.openURL(video.WatchURL())
		}
	case key.Matches(msg, m.keys.checkIn):
		m.dialog = newCheckInDialog(m.state.Course().Title)
	case key.Matches(msg, m.keys.dismiss):
		m.bannerDismissed = true
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) handleDialogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, in, cmd := m.dialog.Update(msg)
	if action == dialogSubmit {
		return m, m.recordCheckIn(m.state.Course().ID, in)
	}
	return m, cmd
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != CourseListView || !m.listReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.courseList, cmd = m.courseList.Update(msg)
	return m, cmd
}

func (m *Model) fetchCourses() tea.Cmd {
	return func() tea.Msg {
		d, err := m.api.Dashboard(m.ctx)
		return coursesFetchedMsg(d, err)
	}
}

func (m *Model) loadCourse(courseID string) tea.Cmd {
	return func() tea.Msg {
		course, err := m.api.GetCourse(m.ctx, courseID)
		return courseLoadedMsg(course, err)
	}
}

func (m *Model) recordCheckIn(courseID string, in checkin.Input) tea.Cmd {
	return func() tea.Msg {
		result, err := m.api.RecordCheckIn(m.ctx, courseID, in)
		return checkInDoneMsg(result, err)
	}
}

func (m *Model) openURL(url string) tea.Cmd {
	open := m.opts.OpenURL
	return func() tea.Msg {
		return browserOpenedMsg(open(url))
	}
}

// waitForEvent blocks on the scheduler's next event.
func waitForEvent(s *viewer.Scheduler) tea.Cmd {
	events := s.Events()
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return schedulerStoppedMsg()
		}
		return schedulerEventMsg(s, e)
	}
}

// waitForToggle re-renders once the background progress request settles.
func waitForToggle(done <-chan struct{}) tea.Cmd {
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return toggleSettledMsg()
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return fmt.Sprintf("%s Loading...", m.spinner.View())
	case CourseListView:
		if !m.listReady {
			return fmt.Sprintf("%s Loading courses...", m.spinner.View())
		}
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.courseList.View(), helpView)
	case CourseView:
		return m.renderCourse()
	default:
		return ""
	}
}

// Narrow reports whether the warning banner is showing.
func (m *Model) Narrow() bool {
	return m.width > 0 && m.width < narrowWidth && !m.bannerDismissed
}

func (m *Model) renderCourse() string {
	var b strings.Builder

	if m.Narrow() {
		b.WriteString(styles.banner.Render("This terminal is narrow; the viewer works best at 60 columns or more. Press d to dismiss."))
		b.WriteString("\n")
	}

	course := m.state.Course()
	totals := m.state.Totals()
	b.WriteString(styles.title.Render(course.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Progress: %d/%d videos (%d%%)\n", totals.Completed, totals.Total, totals.Percent)
	b.WriteString(m.renderCheckInStatus())
	b.WriteString("\n\n")

	if m.dialog != nil {
		b.WriteString(m.dialog.View(m.width))
		return b.String()
	}

	video, ok := m.state.Current()
	if !ok {
		b.WriteString(styles.warn.Render("This course has no videos."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	pos := m.state.Position()
	section := course.Sections[pos.Section]
	fmt.Fprintf(&b, "Section %d: %s (%d/%d)\n", pos.Section+1, section.Title, m.state.SectionCompleted(pos.Section), len(section.Videos))
	fmt.Fprintf(&b, "Video %d of %d\n\n", m.state.Index(), m.state.Len())

	b.WriteString(styles.selected.Render(video.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d min", DurationMinutes(video))
	if m.state.Completed(video.ID) {
		b.WriteString(" • " + styles.ok.Render("completed"))
	}
	b.WriteString("\n\n")

	for i, v := range section.Videos {
		cursor := "  "
		if i == pos.Video {
			cursor = "> "
		}
		mark := "○"
		if m.state.Completed(v.ID) {
			mark = styles.ok.Render("✓")
		}
		fmt.Fprintf(&b, "%s%s %s (%d min)\n", cursor, mark, v.Title, DurationMinutes(v))
	}

	if m.flash != "" {
		b.WriteString("\n")
		b.WriteString(styles.ok.Render(m.flash))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderCheckInStatus() string {
	switch {
	case m.checkedIn:
		return styles.ok.Render("✓ Checked in today")
	case m.statusErr != nil:
		return styles.help.Render("Check-in status unavailable")
	default:
		return styles.warn.Render("Not checked in today (press c)")
	}
}

// DurationMinutes is the video length rounded to whole minutes, 0 when unknown.
func DurationMinutes(v models.Video) int {
	if v.DurationS == nil {
		return 0
	}
	return int(math.Round(float64(*v.DurationS) / 60))
}
