package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/client"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/models"
	th "github.com/desertthunder/pluto/internal/testing"
	"github.com/desertthunder/pluto/internal/viewer"
)

const viewerDate = "2025-03-10"

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

// stubClock never fires its timers.
type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time                               { return c.now }
func (c stubClock) AfterFunc(time.Duration, func()) viewer.Timer { return stubTimer{} }
func (c stubClock) Every(time.Duration, func()) viewer.Timer     { return stubTimer{} }

type fakeAPI struct {
	mu           sync.Mutex
	checkedIn    bool
	statusErr    error
	statusCalls  int
	recordErr    error
	recordedDate string // date of returned check-ins; defaults to viewerDate
	recorded     []checkin.Input
	toggles      map[string]bool
	course       *models.Course
	courseErr    error
	dash         *dashboard.Dashboard
}

func (f *fakeAPI) CheckInStatus(context.Context, string) (*checkin.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &checkin.Status{HasCheckedInToday: f.checkedIn}, nil
}

func (f *fakeAPI) ToggleProgress(_ context.Context, videoID string, completed bool) (*models.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggles == nil {
		f.toggles = map[string]bool{}
	}
	f.toggles[videoID] = completed
	return &models.Progress{VideoID: videoID, Completed: completed}, nil
}

func (f *fakeAPI) Dashboard(context.Context) (*dashboard.Dashboard, error) {
	return f.dash, nil
}

func (f *fakeAPI) GetCourse(context.Context, string) (*client.Course, error) {
	if f.courseErr != nil {
		return nil, f.courseErr
	}
	return &client.Course{Course: f.course, Progress: map[string]bool{}}, nil
}

func (f *fakeAPI) RecordCheckIn(_ context.Context, courseID string, in checkin.Input) (*client.CheckInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, in)
	if f.recordErr != nil {
		return nil, f.recordErr
	}

	date := f.recordedDate
	if date == "" {
		date = viewerDate
	}
	return &client.CheckInResult{
		Success: true,
		Message: "Check-in recorded!",
		CheckIn: &models.CheckIn{CourseID: courseID, Date: date},
	}, nil
}

func (f *fakeAPI) records() []checkin.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]checkin.Input(nil), f.recorded...)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyPress(k))
	}
	return cmd
}

func assertContains(t *testing.T, view, want string) {
	t.Helper()
	if !strings.Contains(view, want) {
		t.Errorf("expected view to contain %q, got:\n%s", want, view)
	}
}

// openViewer loads the course into a model and applies the scheduler's initial status event.
func openViewer(t *testing.T, api *fakeAPI) (*Model, tea.Cmd) {
	t.Helper()
	if api.course == nil {
		api.course = th.NewCourse("u1", "Go", 2, 3)
	}

	m := NewModel(context.Background(), api, api.course.ID, Options{
		Clock:    stubClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		Location: time.UTC,
		OpenURL:  func(string) error { return nil },
	})
	t.Cleanup(m.Close)

	_, cmd := m.Update(courseLoadedMsg(&client.Course{Course: api.course, Progress: map[string]bool{}}, nil))
	if cmd == nil {
		t.Fatal("expected a command waiting for scheduler events")
	}
	if m.view != CourseView {
		t.Fatalf("expected course view, got %v", m.view)
	}

	_, cmd = m.Update(cmd())
	return m, cmd
}

func promptedViewer(t *testing.T, api *fakeAPI) *Model {
	t.Helper()
	m, cmd := openViewer(t, api)
	msg := cmd()
	if kind := msg.(Msg).kind; kind != MsgSchedulerEvent {
		t.Fatalf("expected scheduler event, got %v", kind)
	}
	m.Update(msg)
	if m.dialog == nil {
		t.Fatal("a not-checked-in status should prompt")
	}
	return m
}

// nextSchedulerEvent applies the next event of the model's scheduler.
func nextSchedulerEvent(t *testing.T, m *Model) viewer.Event {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- waitForEvent(m.scheduler)() }()

	select {
	case msg := <-done:
		m.Update(msg)
		data, ok := msg.(Msg).data.(schedulerEvent)
		if !ok {
			t.Fatalf("expected scheduler event, got %+v", msg)
		}
		return data.event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduler event")
		return viewer.Event{}
	}
}

func TestViewerCheckInPrompt(t *testing.T) {
	t.Run("opens the dialog when not checked in", func(t *testing.T) {
		m := promptedViewer(t, &fakeAPI{})
		if m.checkedIn {
			t.Error("expected not checked in")
		}
		assertContains(t, m.View(), "How are you feeling about Go today?")
	})

	t.Run("shows checked in status without a dialog", func(t *testing.T) {
		m, _ := openViewer(t, &fakeAPI{checkedIn: true})
		if !m.checkedIn {
			t.Error("expected checked in")
		}
		if m.dialog != nil {
			t.Error("expected no dialog")
		}
		assertContains(t, m.View(), "Checked in today")
	})

	t.Run("failed status query degrades without a prompt", func(t *testing.T) {
		m, _ := openViewer(t, &fakeAPI{statusErr: errors.New("offline")})
		if m.checkedIn || m.dialog != nil {
			t.Errorf("expected no check-in and no dialog, got checkedIn=%v dialog=%v", m.checkedIn, m.dialog != nil)
		}
		assertContains(t, m.View(), "Check-in status unavailable")
	})

	t.Run("events from a stopped scheduler are ignored", func(t *testing.T) {
		m, _ := openViewer(t, &fakeAPI{checkedIn: true})
		stale := viewer.NewScheduler(&fakeAPI{}, "other")
		m.Update(schedulerEventMsg(stale, viewer.Event{Kind: viewer.PromptCheckIn}))
		if m.dialog != nil {
			t.Error("expected stale prompt to be ignored")
		}
	})

	t.Run("check-in for a previous day prompts again for today", func(t *testing.T) {
		// the response of a check-in submitted before midnight arrives after it
		api := &fakeAPI{recordedDate: "2025-03-09"}
		m := promptedViewer(t, api)

		press(m, "2")
		m.Update(press(m, "enter")())
		if m.checkedIn {
			t.Error("yesterday's check-in should not count for today")
		}
		if m.scheduler.CheckedIn() {
			t.Error("scheduler should not report today as checked in")
		}
		if m.flash != "Check-in recorded!" {
			t.Errorf("expected flash message, got %q", m.flash)
		}

		if e := nextSchedulerEvent(t, m); e.Kind != viewer.StatusUpdated || e.Date != viewerDate || e.CheckedIn {
			t.Errorf("expected a fresh status query for today, got %+v", e)
		}
		if e := nextSchedulerEvent(t, m); e.Kind != viewer.PromptCheckIn {
			t.Errorf("expected a prompt for today, got %+v", e)
		}
		if m.dialog == nil {
			t.Error("expected the dialog to open for today")
		}
	})
}

func TestCheckInDialog(t *testing.T) {
	t.Run("submit requires a mood", func(t *testing.T) {
		api := &fakeAPI{}
		m := promptedViewer(t, api)

		if cmd := press(m, "enter"); cmd != nil {
			t.Error("expected no command without a mood")
		}
		if m.dialog.hint == "" {
			t.Error("expected a hint")
		}
		if len(api.records()) != 0 {
			t.Errorf("expected nothing recorded, got %v", api.records())
		}
	})

	t.Run("submits mood and notes", func(t *testing.T) {
		api := &fakeAPI{}
		m := promptedViewer(t, api)

		press(m, "2", "tab", "deep work")
		cmd := press(m, "enter")
		if cmd == nil {
			t.Fatal("expected a submit command")
		}
		if !m.dialog.submitting {
			t.Error("expected the dialog to be submitting")
		}

		m.Update(cmd())
		if m.dialog != nil {
			t.Error("expected the dialog to close")
		}
		if !m.checkedIn || !m.scheduler.CheckedIn() {
			t.Error("expected today to be checked in")
		}
		if m.flash != "Check-in recorded!" {
			t.Errorf("unexpected flash %q", m.flash)
		}

		records := api.records()
		want := checkin.Input{Mood: models.MoodGreat, Notes: "deep work"}
		if len(records) != 1 || records[0] != want {
			t.Errorf("expected %+v recorded, got %+v", want, records)
		}

		api.mu.Lock()
		calls := api.statusCalls
		api.mu.Unlock()
		if calls != 1 {
			t.Errorf("same-day check-in should not re-query, got %d status calls", calls)
		}
	})

	t.Run("arrow keys cycle moods", func(t *testing.T) {
		m := promptedViewer(t, &fakeAPI{})

		press(m, "l")
		if got := m.dialog.Mood(); got != models.MoodAmazing {
			t.Errorf("expected %s, got %s", models.MoodAmazing, got)
		}
		press(m, "h")
		if got := m.dialog.Mood(); got != models.MoodFocused {
			t.Errorf("expected %s, got %s", models.MoodFocused, got)
		}
	})

	t.Run("skip records empty values", func(t *testing.T) {
		api := &fakeAPI{}
		m := promptedViewer(t, api)

		press(m, "3")
		cmd := press(m, "esc")
		if cmd == nil {
			t.Fatal("expected a skip command")
		}
		m.Update(cmd())

		records := api.records()
		if len(records) != 1 || records[0] != (checkin.Input{}) {
			t.Errorf("expected one empty check-in, got %+v", records)
		}
		if m.dialog != nil {
			t.Error("expected the dialog to close")
		}
	})

	t.Run("failure keeps the dialog open for a retry", func(t *testing.T) {
		api := &fakeAPI{recordErr: errors.New("boom")}
		m := promptedViewer(t, api)

		press(m, "1")
		m.Update(press(m, "enter")())
		if m.dialog == nil {
			t.Fatal("expected the dialog to stay open")
		}
		if m.dialog.submitting {
			t.Error("expected submitting to reset")
		}
		assertContains(t, m.View(), "Check-in failed")
		if got := m.dialog.Mood(); got != models.MoodAmazing {
			t.Errorf("expected mood to be kept, got %s", got)
		}

		api.mu.Lock()
		api.recordErr = nil
		api.mu.Unlock()

		m.Update(press(m, "enter")())
		if m.dialog != nil {
			t.Error("expected the dialog to close after retry")
		}
		if n := len(api.records()); n != 2 {
			t.Errorf("expected 2 attempts, got %d", n)
		}
	})

	t.Run("notes are capped", func(t *testing.T) {
		d := newCheckInDialog("Go")
		d.Update(keyPress("tab"))
		for range models.MaxNotesLength + 20 {
			d.Update(keyPress("a"))
		}
		if n := len(d.Input(false).Notes); n != models.MaxNotesLength {
			t.Errorf("expected %d characters, got %d", models.MaxNotesLength, n)
		}
	})
}

func TestViewerNavigation(t *testing.T) {
	m, _ := openViewer(t, &fakeAPI{checkedIn: true})

	view := m.View()
	assertContains(t, view, "Section 1: Part 1")
	assertContains(t, view, "Video 1 of 5")
	assertContains(t, view, "2 min")

	press(m, "j", "j")
	view = m.View()
	assertContains(t, view, "Section 2: Part 2")
	assertContains(t, view, "Video 3 of 5")

	press(m, "k")
	assertContains(t, m.View(), "Video 2 of 5")

	t.Run("toggle is optimistic and sent in the background", func(t *testing.T) {
		api := &fakeAPI{checkedIn: true}
		m, _ := openViewer(t, api)

		cmd := press(m, " ")
		if cmd == nil {
			t.Fatal("expected a toggle command")
		}
		if !m.state.Completed("course-Go-v0") {
			t.Error("expected the video to be completed immediately")
		}

		m.Update(cmd())
		if completed, known := m.state.Confirmed("course-Go-v0"); !known || !completed {
			t.Errorf("expected confirmed completion, got completed=%v known=%v", completed, known)
		}
		api.mu.Lock()
		sent := api.toggles["course-Go-v0"]
		api.mu.Unlock()
		if !sent {
			t.Error("expected the toggle to reach the API")
		}
		assertContains(t, m.View(), "Progress: 1/5 videos (20%)")
	})

	t.Run("opens the current video", func(t *testing.T) {
		m, _ := openViewer(t, &fakeAPI{checkedIn: true})

		var opened string
		m.opts.OpenURL = func(url string) error {
			opened = url
			return nil
		}

		press(m, "j")
		m.Update(press(m, "o")())
		if opened != "https://www.youtube.com/watch?v=yt1" {
			t.Errorf("unexpected URL %q", opened)
		}
		if m.flash != "Opened in browser" {
			t.Errorf("unexpected flash %q", m.flash)
		}
	})
}

func TestViewerNarrowBanner(t *testing.T) {
	m, _ := openViewer(t, &fakeAPI{checkedIn: true})

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if m.Narrow() {
		t.Error("100 columns is not narrow")
	}

	m.Update(tea.WindowSizeMsg{Width: 40, Height: 40})
	if !m.Narrow() {
		t.Error("40 columns is narrow")
	}
	assertContains(t, m.View(), "narrow")

	press(m, "d")
	if m.Narrow() {
		t.Error("expected the banner to be dismissed")
	}
	if strings.Contains(m.View(), "Press d to dismiss") {
		t.Error("expected the banner to be hidden")
	}
}

func TestViewerCourseList(t *testing.T) {
	api := &fakeAPI{
		dash: &dashboard.Dashboard{Courses: []dashboard.Card{
			{ID: "course-Go", Title: "Go", TotalVideos: 5, CompletedVideos: 1, Percent: 20, TotalDurationS: 600},
		}},
	}
	m := NewModel(context.Background(), api, "", Options{})
	t.Cleanup(m.Close)
	if m.view != CourseListView {
		t.Fatalf("expected the course list, got %v", m.view)
	}

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(coursesFetchedMsg(api.dash, nil))
	if !m.listReady {
		t.Fatal("expected the list to be ready")
	}
	assertContains(t, m.View(), "Go")

	if cmd := press(m, "enter"); cmd == nil {
		t.Fatal("expected a load command")
	}
	if m.view != LoadingView || !m.fromList {
		t.Errorf("expected loading from the list, got view=%v fromList=%v", m.view, m.fromList)
	}
}

func TestViewerLoadError(t *testing.T) {
	m := NewModel(context.Background(), &fakeAPI{}, "missing", Options{})
	m.Update(courseLoadedMsg(nil, errors.New("Course not found")))
	assertContains(t, m.View(), "Error: Course not found")
}

func TestCourseItem(t *testing.T) {
	item := courseItem{card: dashboard.Card{Title: "Go", TotalVideos: 4, CompletedVideos: 1, Percent: 25, TotalDurationS: 3900}}
	if item.Title() != "Go" || item.FilterValue() != "Go" {
		t.Errorf("unexpected title %q / filter %q", item.Title(), item.FilterValue())
	}
	if got := item.Description(); got != "1/4 videos • 25% • 1:05:00" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestDurationMinutes(t *testing.T) {
	secs := func(n int) *int { return &n }

	tc := []struct {
		video models.Video
		want  int
	}{
		{models.Video{}, 0},
		{models.Video{DurationS: secs(89)}, 1},
		{models.Video{DurationS: secs(90)}, 2},
		{models.Video{DurationS: secs(725)}, 12},
	}
	for _, c := range tc {
		if got := DurationMinutes(c.video); got != c.want {
			t.Errorf("DurationMinutes(%v) = %d, want %d", c.video.DurationS, got, c.want)
		}
	}
}
