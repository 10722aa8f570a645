package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/pluto/internal/client"
	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/viewer"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCoursesFetched MsgKind = iota
	MsgCourseLoaded
	MsgSchedulerEvent
	MsgSchedulerStopped
	MsgCheckInDone
	MsgToggleSettled
	MsgBrowserOpened
)

type coursesFetched struct {
	dashboard *dashboard.Dashboard
	err       error
}

type courseLoaded struct {
	course *client.Course
	err    error
}

type schedulerEvent struct {
	scheduler *viewer.Scheduler
	event     viewer.Event
}

type checkInDone struct {
	result *client.CheckInResult
	err    error
}

// coursesFetchedMsg is the constructor for [MsgCoursesFetched]
func coursesFetchedMsg(d *dashboard.Dashboard, err error) Msg {
	return Msg{kind: MsgCoursesFetched, data: coursesFetched{d, err}}
}

// courseLoadedMsg is the constructor for [MsgCourseLoaded]
func courseLoadedMsg(course *client.Course, err error) Msg {
	return Msg{kind: MsgCourseLoaded, data: courseLoaded{course, err}}
}

// schedulerEventMsg is the constructor for [MsgSchedulerEvent]
func schedulerEventMsg(s *viewer.Scheduler, e viewer.Event) Msg {
	return Msg{kind: MsgSchedulerEvent, data: schedulerEvent{s, e}}
}

// schedulerStoppedMsg is the constructor for [MsgSchedulerStopped]
func schedulerStoppedMsg() Msg {
	return Msg{kind: MsgSchedulerStopped}
}

// checkInDoneMsg is the constructor for [MsgCheckInDone]
func checkInDoneMsg(result *client.CheckInResult, err error) Msg {
	return Msg{kind: MsgCheckInDone, data: checkInDone{result, err}}
}

// toggleSettledMsg is the constructor for [MsgToggleSettled]
func toggleSettledMsg() Msg {
	return Msg{kind: MsgToggleSettled}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
