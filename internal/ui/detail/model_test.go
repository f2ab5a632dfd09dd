package detail

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestShow_RendersFieldsAndSections(t *testing.T) {
	m := New(80, 20)
	assert.False(t, m.Active())
	assert.Contains(t, m.View(), "Nothing selected")

	m.Show(Document{
		Title:  "Ann Lee",
		Fields: []Field{{Label: "Email", Value: "ann@example.com"}, {Label: "Phone"}},
		Sections: []Section{
			{Title: "Comments", Body: "Superb dinner"},
			{Title: "Notes"},
		},
	})
	assert.True(t, m.Active())

	view := m.View()
	assert.Contains(t, view, "Ann Lee")
	assert.Contains(t, view, "ann@example.com")
	assert.Contains(t, view, "Superb dinner")
	assert.Contains(t, view, "Nothing written")

	m.Close()
	assert.False(t, m.Active())
}

func TestUpdate_ScrollsLongBodies(t *testing.T) {
	m := New(60, 6)
	m.SetSize(60, 6)
	m.Show(Document{Title: "Long", Sections: []Section{{Body: strings.Repeat("line\n", 40) + "tail"}}})
	assert.NotContains(t, m.View(), "tail")

	for range 60 {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Contains(t, m.View(), "tail")
}
