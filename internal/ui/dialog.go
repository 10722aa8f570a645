package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/pluto/internal/checkin"
	"github.com/desertthunder/pluto/internal/models"
)

// dialogAction is what the dialog asks its parent to do after a key press.
type dialogAction int

const (
	dialogNone dialogAction = iota
	dialogSubmit
)

// CheckInDialog asks for an optional mood and notes.
//
// Submitting with a mood sends it along with the notes; skipping sends neither. The dialog stays open
// until the parent reports success, so a failed request can be retried.
type CheckInDialog struct {
	courseTitle string
	mood        int // index into models.Moods, -1 when none is picked
	notes       textinput.Model
	notesFocus  bool
	submitting  bool
	err         error
	hint        string
	keys        dialogKeyMap
	help        help.Model
}

func newCheckInDialog(courseTitle string) *CheckInDialog {
	notes := textinput.New()
	notes.Placeholder = "Any thoughts about your study session?"
	notes.CharLimit = models.MaxNotesLength
	notes.Width = 48
	notes.Prompt = "> "

	return &CheckInDialog{
		courseTitle: courseTitle,
		mood:        -1,
		notes:       notes,
		keys:        newDialogKeyMap(),
		help:        help.New(),
	}
}

// Mood is the picked mood key, empty when none.
func (d *CheckInDialog) Mood() string {
	if d.mood < 0 || d.mood >= len(models.Moods) {
		return ""
	}
	return models.Moods[d.mood]
}

// Input is the request body for the current selection. skip clears both fields.
func (d *CheckInDialog) Input(skip bool) checkin.Input {
	if skip {
		return checkin.Input{}
	}
	return checkin.Input{Mood: d.Mood(), Notes: strings.TrimSpace(d.notes.Value())}
}

// Update handles a key press. It returns the input to submit with dialogSubmit.
func (d *CheckInDialog) Update(msg tea.KeyMsg) (dialogAction, checkin.Input, tea.Cmd) {
	if d.submitting {
		return dialogNone, checkin.Input{}, nil
	}

	switch {
	case key.Matches(msg, d.keys.skip):
		if d.notesFocus {
			d.notesFocus = false
			d.notes.Blur()
			return dialogNone, checkin.Input{}, nil
		}
		return d.submit(true)
	case key.Matches(msg, d.keys.submit):
		if d.Mood() == "" {
			d.hint = "Pick a mood, or press esc to skip"
			return dialogNone, checkin.Input{}, nil
		}
		return d.submit(false)
	case key.Matches(msg, d.keys.focus):
		d.notesFocus = !d.notesFocus
		if d.notesFocus {
			return dialogNone, checkin.Input{}, d.notes.Focus()
		}
		d.notes.Blur()
		return dialogNone, checkin.Input{}, nil
	}

	if d.notesFocus {
		var cmd tea.Cmd
		d.notes, cmd = d.notes.Update(msg)
		return dialogNone, checkin.Input{}, cmd
	}

	switch {
	case key.Matches(msg, d.keys.left):
		if d.mood < 0 {
			d.pick(len(models.Moods) - 1)
		} else {
			d.pick(d.mood - 1)
		}
	case key.Matches(msg, d.keys.right):
		d.pick(d.mood + 1)
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(models.Moods) {
			d.pick(int(s[0] - '1'))
		}
	}
	return dialogNone, checkin.Input{}, nil
}

func (d *CheckInDialog) pick(i int) {
	n := len(models.Moods)
	d.mood = ((i % n) + n) % n
	d.hint = ""
}

func (d *CheckInDialog) submit(skip bool) (dialogAction, checkin.Input, tea.Cmd) {
	d.submitting = true
	d.err = nil
	d.hint = ""
	return dialogSubmit, d.Input(skip), nil
}

// Failed reopens the dialog for another attempt.
func (d *CheckInDialog) Failed(err error) {
	d.submitting = false
	d.err = err
}

func (d *CheckInDialog) View(width int) string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("How are you feeling about %s today?", d.courseTitle)))
	b.WriteString("\n")

	moods := make([]string, len(models.Moods))
	for i, m := range models.Moods {
		label := fmt.Sprintf("%d %s", i+1, strings.ToUpper(m[:1])+m[1:])
		if i == d.mood {
			moods[i] = styles.selected.Render("[" + label + "]")
		} else {
			moods[i] = " " + label + " "
		}
	}
	b.WriteString(strings.Join(moods, " "))
	b.WriteString("\n\nNotes (optional)\n")
	b.WriteString(d.notes.View())
	b.WriteString(styles.help.Render(fmt.Sprintf("  %d/%d", len([]rune(d.notes.Value())), models.MaxNotesLength)))
	b.WriteString("\n\n")

	switch {
	case d.submitting:
		b.WriteString("Checking in...")
	case d.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Check-in failed: %v", d.err)))
	case d.hint != "":
		b.WriteString(styles.warn.Render(d.hint))
	}
	b.WriteString("\n\n")
	b.WriteString(d.help.ShortHelpView(d.keys.ShortHelp()))

	style := styles.dialog
	if width > 8 {
		style = style.MaxWidth(width)
	}
	return style.Render(b.String())
}
