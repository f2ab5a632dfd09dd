// Package forms holds the huh forms used to create and edit records.
// Every form emits a typed submit message or CancelMsg; persisting the
// result is left to the app.
package forms

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui"
)

// CancelMsg is dispatched when the user aborts a form.
type CancelMsg struct{}

// buildFunc builds the huh form over bindings that live on the heap, so
// huh's Value pointers stay valid across Bubble Tea model copies.
type buildFunc func(width, height int) *huh.Form

// submitFunc turns the completed bindings into a message. An error keeps
// the form open with the same values.
type submitFunc func() (tea.Msg, error)

// Model is a single open form.
type Model struct {
	title  string
	build  buildFunc
	submit submitFunc
	form   *huh.Form
	err    error
	width  int
	height int
}

func newModel(title string, width, height int, build buildFunc, submit submitFunc) (Model, tea.Cmd) {
	m := Model{
		title:  title,
		build:  build,
		submit: submit,
		width:  width,
		height: height,
	}
	m.form = build(m.formWidth(), m.formHeight())
	return m, m.form.Init()
}

// Active reports whether the model holds a form.
func (m Model) Active() bool {
	return m.form != nil
}

// Title returns the form heading.
func (m Model) Title() string {
	return m.title
}

// Err returns the last submit error.
func (m Model) Err() error {
	return m.err
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		out, err := m.submit()
		if err != nil {
			m.err = err
			m.form = m.build(m.formWidth(), m.formHeight())
			return m, m.form.Init()
		}
		m.form = nil
		return m, func() tea.Msg { return out }

	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.Render(m.title)
	if m.err != nil {
		content += "\n" + theme.UrgentStyle.Render(ui.ErrorText(m.err))
	}
	content += "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m Model) formWidth() int {
	return ui.Clamp(m.width-4, 40, 100)
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// displayDate is the dd-mm-yyyy layout used by every date input.
const displayDate = "02-01-2006"

func parseDisplayDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(displayDate, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use dd-mm-yyyy", s)
	}
	return t, nil
}

func validateDate(required bool) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			if required {
				return fmt.Errorf("date is required")
			}
			return nil
		}
		_, err := parseDisplayDate(s)
		return err
	}
}
