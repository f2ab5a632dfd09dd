package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/keys"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui"
)

// EventsLoadedMsg carries the events of one month.
type EventsLoadedMsg struct {
	Month time.Month
	Year  int
	Items []model.CalendarEvent
	Err   error
}

// AddEventMsg asks the app to open the add-event form for Date.
type AddEventMsg struct {
	Date time.Time
}

// Model is the month calendar screen. The cursor is a day; events of the
// cursor's month are fetched whenever the month changes.
type Model struct {
	events notify.EventLister
	keys   *keys.KeyMap

	cursor time.Time
	items  []model.CalendarEvent
	loaded bool
	width  int
	height int
}

// New creates the calendar positioned on today.
func New(events notify.EventLister, k *keys.KeyMap, width, height int) Model {
	return Model{
		events: events,
		keys:   k,
		cursor: dayOf(time.Now()),
		width:  width,
		height: height,
	}
}

func dayOf(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Init loads the current month.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load fetches the events of the cursor's month.
func (m Model) Load() tea.Cmd {
	events := m.events
	month, year := m.cursor.Month(), m.cursor.Year()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		items, err := events.ListMonth(ctx, month, year)
		return EventsLoadedMsg{Month: month, Year: year, Items: items, Err: err}
	}
}

// Cursor returns the focused day.
func (m Model) Cursor() time.Time {
	return m.cursor
}

// Items returns the loaded events of the cursor's month.
func (m Model) Items() []model.CalendarEvent {
	return m.items
}

// Focus moves the cursor to t and reloads when the month changes.
func (m *Model) Focus(t time.Time) tea.Cmd {
	prev := m.cursor
	m.cursor = dayOf(t)
	if prev.Month() == m.cursor.Month() && prev.Year() == m.cursor.Year() && m.loaded {
		return nil
	}
	m.loaded = false
	m.items = nil
	return m.Load()
}

// Update handles messages for the calendar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventsLoadedMsg:
		if msg.Month != m.cursor.Month() || msg.Year != m.cursor.Year() {
			return m, nil
		}
		m.loaded = true
		if msg.Err != nil {
			return m, ui.Fail(fmt.Errorf("load events: %w", msg.Err))
		}
		m.items = msg.Items
		sort.SliceStable(m.items, func(i, j int) bool {
			return m.items[i].StartDate.Before(m.items[j].StartDate)
		})
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.PrevMonth):
			cmd := m.Focus(m.cursor.AddDate(0, -1, 0))
			return m, cmd
		case key.Matches(msg, m.keys.NextMonth):
			cmd := m.Focus(m.cursor.AddDate(0, 1, 0))
			return m, cmd
		case key.Matches(msg, m.keys.Down):
			cmd := m.Focus(m.cursor.AddDate(0, 0, 1))
			return m, cmd
		case key.Matches(msg, m.keys.Up):
			cmd := m.Focus(m.cursor.AddDate(0, 0, -1))
			return m, cmd
		case key.Matches(msg, m.keys.Refresh):
			return m, m.Load()
		case key.Matches(msg, m.keys.Add):
			day := m.cursor
			return m, func() tea.Msg { return AddEventMsg{Date: day} }
		}
	}
	return m, nil
}

// eventsOn returns the loaded events starting on day.
func (m Model) eventsOn(day time.Time) []model.CalendarEvent {
	var out []model.CalendarEvent
	for _, ev := range m.items {
		if dayOf(ev.StartDate).Equal(day) {
			out = append(out, ev)
		}
	}
	return out
}

// View renders the month grid and the cursor day's agenda.
func (m Model) View() string {
	grid := m.renderGrid()
	agenda := m.renderAgenda()
	return lipgloss.JoinHorizontal(lipgloss.Top, grid, "  ", agenda)
}

func (m Model) renderGrid() string {
	first := time.Date(m.cursor.Year(), m.cursor.Month(), 1, 0, 0, 0, 0, time.Local)
	title := theme.TitleStyle.Render(first.Format("January 2006"))

	var b strings.Builder
	b.WriteString(theme.HelpStyle.Render("Mo Tu We Th Fr Sa Su"))
	b.WriteString("\n")

	// Monday-first offset.
	offset := (int(first.Weekday()) + 6) % 7
	b.WriteString(strings.Repeat("   ", offset))

	today := dayOf(time.Now())
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		cell := fmt.Sprintf("%2d", day.Day())
		style := lipgloss.NewStyle()
		evs := m.eventsOn(day)
		switch {
		case hasBirthday(evs):
			style = style.Foreground(theme.ColorMagenta).Bold(true)
		case len(evs) > 0:
			style = style.Foreground(theme.ColorGreen).Bold(true)
		}
		if day.Equal(today) {
			style = style.Underline(true)
		}
		if day.Equal(m.cursor) {
			style = style.Reverse(true)
		}
		b.WriteString(style.Render(cell))
		if day.Weekday() == time.Sunday {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}

	return theme.PanelStyle.Render(title + "\n" + b.String())
}

func hasBirthday(evs []model.CalendarEvent) bool {
	for _, ev := range evs {
		if ev.IsBirthday() {
			return true
		}
	}
	return false
}

func (m Model) renderAgenda() string {
	title := theme.TitleStyle.Render(m.cursor.Format("Monday, 02 Jan 2006"))
	if !m.loaded {
		return title + "\n" + theme.HelpStyle.Render("Loading events...")
	}

	evs := m.eventsOn(m.cursor)
	lines := []string{title}
	if len(evs) == 0 {
		lines = append(lines, theme.HelpStyle.Render("No events. Press n to add one."))
	}
	for _, ev := range evs {
		lines = append(lines, renderEvent(ev))
	}

	lines = append(lines, "", theme.TitleStyle.Render(fmt.Sprintf("This month (%d)", len(m.items))))
	limit := ui.Clamp(m.height-len(lines)-4, 0, len(m.items))
	for _, ev := range m.items[:limit] {
		lines = append(lines, theme.HelpStyle.Render(model.FormatDate(ev.StartDate))+"  "+renderEvent(ev))
	}
	return strings.Join(lines, "\n")
}

func renderEvent(ev model.CalendarEvent) string {
	label := ev.Title
	if ev.IsBirthday() {
		label = lipgloss.NewStyle().Foreground(theme.ColorMagenta).Render("🎂 " + ev.GuestName())
	}
	if ev.Type != "" {
		label += " " + theme.HelpStyle.Render("["+ev.Type+"]")
	}
	if ev.Recurring {
		label += " " + theme.HelpStyle.Render("↻")
	}
	return label
}

// SetSize updates the calendar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
