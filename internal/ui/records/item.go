package records

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/theme"
)

// item wraps a record so it can be used in a bubbles/list.
type item[T any] struct {
	value T
	row   string
}

// FilterValue is unused; filtering runs through viewmodel.Apply.
func (i item[T]) FilterValue() string { return i.row }

// rowDelegate renders one record per line.
type rowDelegate[T any] struct{}

func (d rowDelegate[T]) Height() int { return 1 }

func (d rowDelegate[T]) Spacing() int { return 0 }

func (d rowDelegate[T]) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate[T]) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item[T])
	if !ok {
		return
	}

	row := it.row
	if width := m.Width() - 3; width > 0 {
		row = lipgloss.NewStyle().MaxWidth(width).Render(row)
	}

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(row))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(row))
}
