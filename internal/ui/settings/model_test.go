package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/guest-review/internal/credential"
	"github.com/nhle/guest-review/internal/keys"
	"github.com/nhle/guest-review/internal/model"
)

type tick struct{}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newView(t *testing.T, saved *[]model.AppConfig, probes Probes) (Model, *credential.Vault) {
	t.Helper()
	vault := credential.NewVault(keyring.NewArrayKeyring(nil))
	m := New(Deps{
		Config: *model.DefaultConfig(),
		Save: func(cfg model.AppConfig) error {
			*saved = append(*saved, cfg)
			return nil
		},
		Secrets: vault,
		Probes:  probes,
	}, keys.DefaultKeyMap(), 100, 30)
	return m, vault
}

// complete finishes the open form and runs the resulting command.
func complete(t *testing.T, m Model) (Model, tea.Msg) {
	t.Helper()
	require.NotNil(t, m.form)
	m.form.State = huh.StateCompleted
	m, cmd := m.Update(tick{})
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestOverview_ShowsCurrentValues(t *testing.T) {
	var saved []model.AppConfig
	m, _ := newView(t, &saved, Probes{})

	view := m.View()
	assert.Contains(t, view, "guest-review-backend.onrender.com")
	assert.Contains(t, view, "disabled")
}

func TestAPIForm_SavesPolling(t *testing.T) {
	var saved []model.AppConfig
	m, _ := newView(t, &saved, Probes{})

	m, _ = m.Update(runes("a"))
	require.Equal(t, ModeFormAPI, m.Mode())
	m.f.baseURL = "http://localhost:5000/api"
	m.f.reviewSec = "10"

	m, msg := complete(t, m)
	assert.Equal(t, ModeOverview, m.Mode())
	require.IsType(t, savedInternalMsg{}, msg)

	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	out, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:5000/api", out.Config.API.BaseURL)
	assert.Equal(t, 10, out.Config.Polling.ReviewIntervalSec)
	assert.Equal(t, out.Config, m.Config())
	require.Len(t, saved, 1)
	assert.Contains(t, m.View(), "Settings saved")
}

func TestMailboxForm_StoresPasswordInKeyring(t *testing.T) {
	var saved []model.AppConfig
	m, vault := newView(t, &saved, Probes{})

	m, _ = m.Update(runes("m"))
	require.Equal(t, ModeFormMailbox, m.Mode())
	m.f.mailboxOn = true
	m.f.host = "imap.hotel.com"
	m.f.username = "feedback@hotel.com"
	m.f.password = "s3cret"

	m, msg := complete(t, m)
	m, _ = m.Update(msg)
	assert.True(t, m.Config().Mailbox.Enabled)
	assert.Empty(t, m.f.password)

	pw, err := vault.Get(credential.MailboxKey("feedback@hotel.com"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
}

func TestMailboxForm_InvalidConfigIsNotSaved(t *testing.T) {
	var saved []model.AppConfig
	m, _ := newView(t, &saved, Probes{})

	m, _ = m.Update(runes("m"))
	m.f.mailboxOn = true
	m.f.host = ""

	m, msg := complete(t, m)
	assert.Nil(t, msg)
	assert.Empty(t, saved)
	assert.False(t, m.Config().Mailbox.Enabled)
	assert.Contains(t, m.View(), "mailbox.host")
}

func TestForm_EscReturnsToOverview(t *testing.T) {
	var saved []model.AppConfig
	m, _ := newView(t, &saved, Probes{})

	m, _ = m.Update(runes("a"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeOverview, m.Mode())
	assert.Empty(t, saved)
}

func TestConnectionTest_ReportsEachProbe(t *testing.T) {
	var saved []model.AppConfig
	var gotURL string
	m, vault := newView(t, &saved, Probes{
		API: func(_ context.Context, baseURL string) error {
			gotURL = baseURL
			return nil
		},
		Mailbox: func(_ context.Context, cfg model.MailboxConfig, password string) error {
			if password != "s3cret" {
				return errors.New("bad password")
			}
			return errors.New("LOGIN failed")
		},
	})
	m.cfg.Mailbox = model.MailboxConfig{Enabled: true, Host: "imap.hotel.com", Port: 993, Username: "fb"}
	require.NoError(t, vault.Set(credential.MailboxKey("fb"), "s3cret"))

	m, cmd := m.Update(runes("t"))
	require.NotNil(t, cmd)
	assert.Equal(t, ModeTesting, m.Mode())

	res := m.test(m.cfg)().(TestResultMsg)
	assert.NoError(t, res.API)
	assert.True(t, res.MailboxTested)
	assert.EqualError(t, res.Mailbox, "LOGIN failed")
	assert.Equal(t, m.cfg.API.BaseURL, gotURL)

	m, _ = m.Update(res)
	assert.Equal(t, ModeTestResult, m.Mode())
	view := m.View()
	assert.Contains(t, view, "Backend: ok")
	assert.Contains(t, view, "Inbox: failed")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestConnectionTest_LateResultIgnored(t *testing.T) {
	var saved []model.AppConfig
	m, _ := newView(t, &saved, Probes{})

	m, _ = m.Update(runes("t"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = m.Update(TestResultMsg{API: errors.New("down")})
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestOverview_EscIsDone(t *testing.T) {
	var saved []model.AppConfig
	m, _ := newView(t, &saved, Probes{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, DoneMsg{}, cmd())
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("https://host/api"))
	assert.Error(t, validateURL("ftp://host"))
	assert.Error(t, validateURL("http://"))
	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort("70000"))
	assert.Error(t, validatePositive("0"))
	assert.NoError(t, validatePositive(" 5 "))
}
