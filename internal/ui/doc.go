// Package ui implements the terminal course viewer using bubbletea's Elm architecture.
//
// The viewer has three views:
//  1. [CourseListView] : Pick a course from the dashboard
//  2. [LoadingView] : Wait for the course tree and progress
//  3. [CourseView] : Step through videos, toggle completion, and open videos in the browser
//
// While a course is open a [viewer.Scheduler] asks the server whether the user checked in today.
// Its events reach the [Model] through a command that blocks on the scheduler's channel, and a
// prompt opens the [CheckInDialog]. Progress toggles are optimistic: the view updates at once and
// the request runs in the background.
//
// A dismissible banner warns when the terminal is narrower than the layout expects.
package ui
