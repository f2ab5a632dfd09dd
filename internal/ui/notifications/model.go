package notifications

import (
	"context"
	"fmt"
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

// NavigateMsg is sent when an activated notification leads to a screen.
type NavigateMsg struct {
	Nav notify.Navigation
}

// ClosedMsg is sent when the panel closes itself.
type ClosedMsg struct{}

// Model is the notification dropdown. It renders the feed and forwards
// user actions to it; the feed owns all state.
type Model struct {
	feed   *notify.Feed
	panel  *notify.Panel
	keys   *keys.KeyMap
	cursor int
	width  int
	height int
}

// New creates the panel view over feed.
func New(feed *notify.Feed, panel *notify.Panel, k *keys.KeyMap, width, height int) Model {
	return Model{feed: feed, panel: panel, keys: k, width: width, height: height}
}

// Toggle opens or closes the panel. Opening marks everything read.
func (m *Model) Toggle() {
	if m.panel.Toggle(context.Background()) {
		m.cursor = 0
	}
}

// Close hides the panel, e.g. when the user leaves the screen or signs out.
func (m *Model) Close() {
	m.panel.Close()
	m.cursor = 0
}

// IsOpen reports whether the panel is showing.
func (m Model) IsOpen() bool {
	return m.panel.IsOpen()
}

// Cursor returns the focused row.
func (m Model) Cursor() int {
	return m.cursor
}

// Update handles keys while the panel is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.panel.IsOpen() {
		return m, nil
	}

	ctx := context.Background()
	n := m.feed.Len()

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Select):
		if n == 0 {
			return m, nil
		}
		nav, err := m.feed.Activate(ctx, m.cursor)
		if err != nil {
			return m, ui.Fail(err)
		}
		m.clampCursor()
		if nav.To == notify.DestNone {
			return m, nil
		}
		m.panel.Close()
		return m, func() tea.Msg { return NavigateMsg{Nav: nav} }

	case key.Matches(keyMsg, m.keys.Delete):
		if n == 0 {
			return m, nil
		}
		if err := m.feed.Remove(ctx, m.cursor); err != nil {
			return m, ui.Fail(err)
		}
		m.clampCursor()

	case key.Matches(keyMsg, m.keys.ClearAll):
		m.feed.Clear(ctx)
		m.cursor = 0

	case key.Matches(keyMsg, m.keys.Back), key.Matches(keyMsg, m.keys.Notifications):
		m.panel.Close()
		return m, func() tea.Msg { return ClosedMsg{} }
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if n := m.feed.Len(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the dropdown.
func (m Model) View() string {
	items := m.feed.Items()
	title := theme.TitleStyle.Render(fmt.Sprintf("Notifications (%d)", len(items)))

	if len(items) == 0 {
		return theme.PanelStyle.Width(m.panelWidth()).Render(
			title + "\n" + theme.HelpStyle.Render("You're all caught up."))
	}

	now := time.Now()
	rows := make([]string, len(items))
	for i, n := range items {
		row := renderRow(n, now)
		if i == m.cursor {
			rows[i] = theme.SelectedItemStyle.Render(row)
		} else {
			rows[i] = theme.ListItemStyle.Render(row)
		}
	}

	hint := theme.HelpStyle.Render("enter open · d dismiss · c clear all · esc close")
	return theme.PanelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"), "", hint))
}

func renderRow(n model.Notification, now time.Time) string {
	label := theme.KindStyle(n.Kind).Render(string(n.Kind))
	msg := n.Message
	if n.IsUrgent() {
		msg = theme.UrgentStyle.Render("! " + msg)
	}

	var extra []string
	if d := n.Metadata[model.MetaDepartment]; d != "" {
		extra = append(extra, d)
	}
	if r, ok := n.Rating(); ok {
		extra = append(extra, theme.RatingStyle(r).Render(model.Stars(r)))
	}
	extra = append(extra, relativeTime(now, n.Timestamp))

	return label + " " + msg + "\n   " + theme.HelpStyle.Render(strings.Join(extra, " · "))
}

// relativeTime renders t relative to now ("just now", "5m ago").
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return model.FormatDate(t)
	}
}

func (m Model) panelWidth() int {
	return ui.Clamp(m.width-4, 30, 80)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
