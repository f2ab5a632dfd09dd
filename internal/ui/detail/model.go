// Package detail renders one record as a scrollable document: a title,
// badges, labelled fields and free-text sections.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/theme"
)

// Field is one labelled value. Empty values render as "-".
type Field struct {
	Label string
	Value string
}

// Section is a titled block of free text such as comments.
type Section struct {
	Title string
	Body  string
}

// Document is the content of the detail view.
type Document struct {
	Title    string
	Badges   []string
	Fields   []Field
	Sections []Section
}

// Model is the record detail view.
type Model struct {
	doc      *Document
	viewport viewport.Model
	width    int
	height   int
}

// New creates an empty detail view.
func New(width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Show replaces the displayed document and scrolls to the top.
func (m *Model) Show(doc Document) {
	m.doc = &doc
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Close clears the document.
func (m *Model) Close() {
	m.doc = nil
}

// Active reports whether a document is shown.
func (m Model) Active() bool {
	return m.doc != nil
}

// Update scrolls the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.doc == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.doc == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Nothing selected")
	}
	return theme.PanelStyle.Width(m.panelWidth()).Render(m.viewport.View())
}

func (m Model) renderContent() string {
	doc := m.doc
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(doc.Title))

	if len(doc.Badges) > 0 {
		badges := make([]string, 0, 2*len(doc.Badges))
		for i, b := range doc.Badges {
			if i > 0 {
				badges = append(badges, "  ")
			}
			badges = append(badges, b)
		}
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...))
	}
	sections = append(sections, "")

	labelWidth := 0
	for _, f := range doc.Fields {
		if len(f.Label) > labelWidth {
			labelWidth = len(f.Label)
		}
	}
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	for _, f := range doc.Fields {
		v := f.Value
		if v == "" {
			v = "-"
		}
		sections = append(sections, fmt.Sprintf("%s  %s",
			metaStyle.Render(fmt.Sprintf("%-*s", labelWidth+1, f.Label+":")),
			valStyle.Render(v),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.panelWidth()-4, 80), 1)))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	for _, s := range doc.Sections {
		sections = append(sections, "", separator, "")
		if s.Title != "" {
			sections = append(sections, headerStyle.Render(s.Title))
		}
		body := s.Body
		if strings.TrimSpace(body) == "" {
			body = lipgloss.NewStyle().
				Foreground(theme.ColorGray).
				Italic(true).
				Render("Nothing written")
		}
		sections = append(sections, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) panelWidth() int {
	return max(m.width-2, 10)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(m.panelWidth()-4, 1)
	m.viewport.Height = max(height-2, 1)
	if m.doc != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
