package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/guest-review/internal/api"
)

// RequestTimeout bounds every request a screen issues on the user's behalf.
const RequestTimeout = 30 * time.Second

// StatusMsg reports the outcome of a user action to the status bar.
// A nil Err with empty Text clears the bar.
type StatusMsg struct {
	Text string
	Err  error
}

// Status returns a command that emits a StatusMsg.
func Status(text string) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text} }
}

// Fail returns a command that reports err to the status bar.
func Fail(err error) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Err: err} }
}

// ErrorText renders an error for the status bar.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + api.Message(err)
}

// Clamp returns v limited to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
