// Package records is the list screen shared by reviews, users and
// promotions: a fetched collection filtered through viewmodel.Apply with
// role-gated edit and two-step delete.
package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/keys"
	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui"
	"github.com/nhle/guest-review/internal/ui/detail"
	"github.com/nhle/guest-review/internal/viewmodel"
)

// Config binds a record type to the list screen.
type Config[T any] struct {
	Title string
	Noun  string

	Spec viewmodel.Spec[T]

	// Options cycled by the category (1) and secondary (2) keys. An empty
	// slice disables the key.
	Categories     []string
	CategoryLabel  string
	Secondaries    []string
	SecondaryLabel string

	Gate viewmodel.Gate

	// CanAdd enables the add key for every role.
	CanAdd bool

	ID     func(T) string
	Label  func(T) string
	Row    func(T) string
	Detail func(T) detail.Document

	Load    func(ctx context.Context) ([]T, error)
	Deleter viewmodel.Deleter
}

// LoadedMsg carries a fresh fetch of the collection.
type LoadedMsg[T any] struct {
	Items []T
	Err   error
}

// DeletedMsg reports a confirmed delete and the re-fetch that followed it.
type DeletedMsg[T any] struct {
	Label   string
	Err     error
	Items   []T
	LoadErr error
}

// AddMsg asks the app to open the create form for T.
type AddMsg[T any] struct{}

// EditMsg asks the app to open the edit form for Item.
type EditMsg[T any] struct {
	Item T
}

// Model is the list screen for one record type.
type Model[T any] struct {
	cfg  Config[T]
	keys *keys.KeyMap

	list        list.Model
	all         []T
	filter      viewmodel.Filter
	flow        *viewmodel.DeleteFlow
	pending     string
	role        string
	loaded      bool
	detail      detail.Model
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a list screen for cfg.
func New[T any](cfg Config[T], k *keys.KeyMap, width, height int) Model[T] {
	l := list.New([]list.Item{}, rowDelegate[T]{}, width, height-3)
	l.Title = cfg.Title
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)

	si := textinput.New()
	si.Placeholder = "search " + cfg.Noun + "s..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model[T]{
		cfg:         cfg,
		keys:        k,
		list:        l,
		filter:      viewmodel.NewFilter(),
		flow:        viewmodel.NewDeleteFlow(cfg.Deleter, nil),
		detail:      detail.New(width, ui.Clamp(height-3, 1, height)),
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init loads the collection.
func (m Model[T]) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that fetches the collection.
func (m Model[T]) Load() tea.Cmd {
	load := m.cfg.Load
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		items, err := load(ctx)
		return LoadedMsg[T]{Items: items, Err: err}
	}
}

// SetRole updates the role the edit and delete gates are checked against.
func (m *Model[T]) SetRole(role string) {
	m.role = role
}

// Filter returns the current filter state.
func (m Model[T]) Filter() viewmodel.Filter {
	return m.filter
}

// Visible returns the records that pass the current filter.
func (m Model[T]) Visible() []T {
	return viewmodel.Apply(m.all, m.cfg.Spec, m.filter)
}

// Selected returns the focused record.
func (m Model[T]) Selected() (T, bool) {
	it, ok := m.list.SelectedItem().(item[T])
	if !ok {
		var zero T
		return zero, false
	}
	return it.value, true
}

// Capturing reports whether the screen is consuming raw keystrokes
// (search input or a pending confirmation), so global keys must not fire.
func (m Model[T]) Capturing() bool {
	_, pending := m.flow.Pending()
	return m.searchMode || pending
}

// Update handles messages for the list screen.
func (m Model[T]) Update(msg tea.Msg) (Model[T], tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg[T]:
		m.loaded = true
		if msg.Err != nil {
			return m, ui.Fail(fmt.Errorf("load %ss: %w", m.cfg.Noun, msg.Err))
		}
		m.all = msg.Items
		cmd := m.apply()
		return m, cmd

	case DeletedMsg[T]:
		var cmds []tea.Cmd
		if msg.LoadErr == nil {
			m.all = msg.Items
			cmds = append(cmds, m.apply())
		}
		if msg.Err != nil {
			cmds = append(cmds, ui.Fail(fmt.Errorf("delete %s: %w", m.cfg.Noun, msg.Err)))
		} else {
			cmds = append(cmds, ui.Status("Deleted "+msg.Label))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if _, pending := m.flow.Pending(); pending {
			return m.handleConfirmKeys(msg)
		}
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model[T]) handleConfirmKeys(msg tea.KeyMsg) (Model[T], tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id, ok := m.flow.Take()
		label := m.pending
		m.pending = ""
		if !ok {
			return m, nil
		}
		flow := m.flow
		load := m.cfg.Load
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
			defer cancel()
			err := flow.Delete(ctx, id)
			items, loadErr := load(ctx)
			return DeletedMsg[T]{Label: label, Err: err, Items: items, LoadErr: loadErr}
		}

	case key.Matches(msg, m.keys.Cancel):
		m.flow.Cancel()
		m.pending = ""
	}
	return m, nil
}

// handleSearchKeys filters as the user types; enter keeps the query and
// esc clears it.
func (m Model[T]) handleSearchKeys(msg tea.KeyMsg) (Model[T], tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.filter.Search = ""
		cmd := m.apply()
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.filter.Search = m.searchInput.Value()
	return m, tea.Batch(cmd, m.apply())
}

func (m Model[T]) handleNormalKeys(msg tea.KeyMsg) (Model[T], tea.Cmd) {
	if m.detail.Active() {
		if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Select) {
			m.detail.Close()
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Select):
		if v, ok := m.Selected(); ok && m.cfg.Detail != nil {
			m.detail.Show(m.cfg.Detail(v))
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Search)
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleCategory):
		if len(m.cfg.Categories) == 0 {
			return m, nil
		}
		m.filter.Category = viewmodel.Cycle(m.filter.Category, m.cfg.Categories)
		cmd := m.apply()
		return m, cmd

	case key.Matches(msg, m.keys.CycleSecondary):
		if len(m.cfg.Secondaries) == 0 {
			return m, nil
		}
		m.filter.Secondary = viewmodel.Cycle(m.filter.Secondary, m.cfg.Secondaries)
		cmd := m.apply()
		return m, cmd

	case key.Matches(msg, m.keys.Back):
		if m.filter.IsZero() {
			return m, nil
		}
		m.filter = viewmodel.NewFilter()
		m.searchInput.Reset()
		cmd := m.apply()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()

	case key.Matches(msg, m.keys.Add):
		if !m.cfg.CanAdd {
			return m, nil
		}
		return m, func() tea.Msg { return AddMsg[T]{} }

	case key.Matches(msg, m.keys.Edit):
		v, ok := m.Selected()
		if !ok || !m.cfg.Gate.CanEdit(m.role) {
			return m, nil
		}
		return m, func() tea.Msg { return EditMsg[T]{Item: v} }

	case key.Matches(msg, m.keys.Delete):
		v, ok := m.Selected()
		if !ok || !m.cfg.Gate.CanDelete(m.role) {
			return m, nil
		}
		m.flow.Request(m.cfg.ID(v))
		m.pending = m.cfg.Label(v)
		return m, nil
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// apply re-runs the filter over the fetched records.
func (m *Model[T]) apply() tea.Cmd {
	visible := m.Visible()
	items := make([]list.Item, len(visible))
	for i, v := range visible {
		items[i] = item[T]{value: v, row: m.cfg.Row(v)}
	}
	return m.list.SetItems(items)
}

// View renders the list screen.
func (m Model[T]) View() string {
	parts := []string{m.renderFilterBar()}

	if m.searchMode {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	if m.pending != "" {
		parts = append(parts, theme.ConfirmStyle.Padding(0, 1).Render(
			fmt.Sprintf("Delete %s %q? (y/n)", m.cfg.Noun, m.pending)))
	}

	switch {
	case m.detail.Active():
		parts = append(parts, m.detail.View())
	case len(m.list.Items()) == 0:
		parts = append(parts, m.renderEmptyState())
	default:
		parts = append(parts, m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model[T]) renderFilterBar() string {
	fields := []string{theme.HeaderStyle.Render(m.cfg.Title)}
	if m.filter.Search != "" {
		fields = append(fields, "search: "+m.filter.Search)
	}
	if len(m.cfg.Categories) > 0 {
		fields = append(fields, m.cfg.CategoryLabel+": "+m.filter.Category)
	}
	if len(m.cfg.Secondaries) > 0 {
		fields = append(fields, m.cfg.SecondaryLabel+": "+m.filter.Secondary)
	}
	fields = append(fields, fmt.Sprintf("%d/%d", len(m.list.Items()), len(m.all)))
	return strings.Join(fields, theme.HelpStyle.Render("  ·  "))
}

// renderEmptyState shows guidance text when nothing is visible.
func (m Model[T]) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(ui.Clamp(m.height-2, 1, m.height)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.loaded:
		return style.Render("Loading " + m.cfg.Noun + "s...")
	case !m.filter.IsZero():
		return style.Render("No matching " + m.cfg.Noun + "s.\nPress esc to clear the filters.")
	default:
		return style.Render("No " + m.cfg.Noun + "s yet.")
	}
}

// SetSize updates the list dimensions.
func (m *Model[T]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, ui.Clamp(height-3, 1, height))
	m.detail.SetSize(width, ui.Clamp(height-3, 1, height))
	m.searchInput.Width = width - 4
}
