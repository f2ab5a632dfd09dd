package forms

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/guest-review/internal/review"
)

// LoginMsg carries the credentials typed into the login form.
type LoginMsg struct {
	Email    string
	Password string
}

type loginBindings struct {
	email    string
	password string
}

// NewLogin builds the sign-in form.
func NewLogin(width, height int) (Model, tea.Cmd) {
	b := &loginBindings{}

	build := func(w, h int) *huh.Form {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Email").
					Placeholder("you@hotel.com").
					Value(&b.email).
					Validate(review.CheckEmail),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&b.password).
					Validate(validateRequired("Password")),
			),
		).WithWidth(w).WithHeight(h).WithShowHelp(true)
	}

	submit := func() (tea.Msg, error) {
		msg := LoginMsg{Email: strings.TrimSpace(b.email), Password: b.password}
		b.password = ""
		return msg, nil
	}

	return newModel("Guest Review Desk · Sign in", width, height, build, submit)
}

// SecretMsg carries a secret typed into a password prompt.
type SecretMsg struct {
	Key   string
	Value string
}

// NewSecret prompts for a secret stored under key, e.g. the mailbox password.
func NewSecret(title, key string, width, height int) (Model, tea.Cmd) {
	value := new(string)

	build := func(w, h int) *huh.Form {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(value).
					Validate(validateRequired("Password")),
			),
		).WithWidth(w).WithHeight(h)
	}

	submit := func() (tea.Msg, error) {
		msg := SecretMsg{Key: key, Value: *value}
		*value = ""
		return msg, nil
	}

	return newModel(title, width, height, build, submit)
}
