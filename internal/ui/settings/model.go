// Package settings is the in-app editor for the backend, polling and
// mailbox configuration, with a connection test for each.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/credential"
	"github.com/nhle/guest-review/internal/keys"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui"
)

// Mode is the current state of the settings view.
type Mode int

const (
	ModeOverview    Mode = iota // current values
	ModeFormAPI                 // backend and polling form
	ModeFormMailbox             // IMAP inbox form
	ModeTesting                 // connection test in flight
	ModeTestResult              // connection test outcome
)

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg carries the configuration that was just written.
type SavedMsg struct {
	Config model.AppConfig
}

// TestResultMsg carries the outcome of a connection test.
type TestResultMsg struct {
	API           error
	Mailbox       error
	MailboxTested bool
}

type savedInternalMsg struct {
	cfg model.AppConfig
	err error
}

var errNoKeyring = errors.New("no keyring available")

// Secrets is the subset of the keyring the view needs.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Probes check connectivity. A nil probe is skipped.
type Probes struct {
	API     func(ctx context.Context, baseURL string) error
	Mailbox func(ctx context.Context, cfg model.MailboxConfig, password string) error
}

// Deps are the collaborators of the settings view. Secrets may be nil.
type Deps struct {
	Config  model.AppConfig
	Save    func(model.AppConfig) error
	Secrets Secrets
	Probes  Probes
}

// fields are the huh bindings. They live on the heap so the Value
// pointers survive Bubble Tea model copies.
type fields struct {
	baseURL     string
	reviewSec   string
	dashboardMs string
	mailboxSec  string

	mailboxOn bool
	host      string
	port      string
	username  string
	password  string
	tls       bool
}

// Model is the settings view.
type Model struct {
	mode  Mode
	deps  Deps
	cfg   model.AppConfig
	f     *fields
	form  *huh.Form
	keys  *keys.KeyMap
	spin  spinner.Model
	last  TestResultMsg
	note  string
	noteE error

	width, height int
}

// New creates the settings view over deps.Config.
func New(deps Deps, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:   ModeOverview,
		deps:   deps,
		cfg:    deps.Config,
		f:      &fields{},
		keys:   k,
		spin:   sp,
		width:  width,
		height: height,
	}
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Config returns the configuration as last saved.
func (m Model) Config() model.AppConfig {
	return m.cfg
}

// Update handles messages and dispatches on the current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedInternalMsg:
		if msg.err != nil {
			m.setNote("", msg.err)
			return m, nil
		}
		m.cfg = msg.cfg
		m.setNote("Settings saved", nil)
		cfg := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }

	case TestResultMsg:
		if m.mode != ModeTesting {
			return m, nil
		}
		m.last = msg
		m.mode = ModeTestResult
		return m, nil

	case spinner.TickMsg:
		if m.mode != ModeTesting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case ModeOverview:
			return m.handleOverviewKeys(msg)
		case ModeTesting:
			if key.Matches(msg, m.keys.Back) {
				m.mode = ModeOverview
			}
			return m, nil
		case ModeTestResult:
			return m.handleResultKeys(msg)
		case ModeFormAPI, ModeFormMailbox:
			if key.Matches(msg, m.keys.Back) {
				m.form = nil
				m.f.password = ""
				m.mode = ModeOverview
				return m, nil
			}
		}
	}

	if m.mode == ModeFormAPI || m.mode == ModeFormMailbox {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleOverviewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case msg.String() == "a":
		m.setNote("", nil)
		m.fill()
		m.mode = ModeFormAPI
		m.form = m.buildAPIForm()
		return m, m.form.Init()

	case msg.String() == "m":
		m.setNote("", nil)
		m.fill()
		m.mode = ModeFormMailbox
		m.form = m.buildMailboxForm()
		return m, m.form.Init()

	case msg.String() == "t":
		return m.startTest()
	}
	return m, nil
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case msg.String() == "r":
		return m.startTest()
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Select):
		m.mode = ModeOverview
		m.last = TestResultMsg{}
	}
	return m, nil
}

func (m Model) startTest() (Model, tea.Cmd) {
	m.mode = ModeTesting
	return m, tea.Batch(m.spin.Tick, m.test(m.cfg))
}

// fill copies the saved configuration into the form bindings.
func (m *Model) fill() {
	*m.f = fields{
		baseURL:     m.cfg.API.BaseURL,
		reviewSec:   strconv.Itoa(m.cfg.Polling.ReviewIntervalSec),
		dashboardMs: strconv.Itoa(m.cfg.Polling.DashboardIntervalMs),
		mailboxSec:  strconv.Itoa(m.cfg.Polling.MailboxIntervalSec),
		mailboxOn:   m.cfg.Mailbox.Enabled,
		host:        m.cfg.Mailbox.Host,
		port:        strconv.Itoa(m.cfg.Mailbox.Port),
		username:    m.cfg.Mailbox.Username,
		tls:         m.cfg.Mailbox.TLS,
	}
}

func (m Model) buildAPIForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("REST root of the review backend").
				Placeholder("https://host/api").
				Value(&m.f.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Review poll (seconds)").
				Value(&m.f.reviewSec).
				Validate(validatePositive),
			huh.NewInput().
				Title("Dashboard poll (milliseconds)").
				Value(&m.f.dashboardMs).
				Validate(validatePositive),
			huh.NewInput().
				Title("Mailbox poll (seconds)").
				Value(&m.f.mailboxSec).
				Validate(validatePositive),
		),
	).WithWidth(m.formWidth())
}

func (m Model) buildMailboxForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Watch the feedback inbox").
				Affirmative("Yes").
				Negative("No").
				Value(&m.f.mailboxOn),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&m.f.host),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&m.f.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("feedback@example.com").
				Value(&m.f.username),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring. Leave blank to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&m.f.password),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.f.tls),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		m.mode = ModeOverview
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		m.form = nil
		m.mode = ModeOverview
		return m, nil
	}
	return m, cmd
}

// submit applies the bindings to a copy of the saved configuration and
// persists it if it is still valid.
func (m Model) submit() (Model, tea.Cmd) {
	mode := m.mode
	m.form = nil
	m.mode = ModeOverview

	cfg := m.cfg
	password := ""
	switch mode {
	case ModeFormAPI:
		cfg.API.BaseURL = strings.TrimSpace(m.f.baseURL)
		cfg.Polling.ReviewIntervalSec, _ = strconv.Atoi(strings.TrimSpace(m.f.reviewSec))
		cfg.Polling.DashboardIntervalMs, _ = strconv.Atoi(strings.TrimSpace(m.f.dashboardMs))
		cfg.Polling.MailboxIntervalSec, _ = strconv.Atoi(strings.TrimSpace(m.f.mailboxSec))
	case ModeFormMailbox:
		cfg.Mailbox.Enabled = m.f.mailboxOn
		cfg.Mailbox.Host = strings.TrimSpace(m.f.host)
		cfg.Mailbox.Port, _ = strconv.Atoi(strings.TrimSpace(m.f.port))
		cfg.Mailbox.Username = strings.TrimSpace(m.f.username)
		cfg.Mailbox.TLS = m.f.tls
		password = m.f.password
	}
	m.f.password = ""

	if err := cfg.Validate(); err != nil {
		m.setNote("", err)
		return m, nil
	}
	return m, m.save(cfg, password)
}

func (m Model) save(cfg model.AppConfig, password string) tea.Cmd {
	save := m.deps.Save
	secrets := m.deps.Secrets
	return func() tea.Msg {
		if password != "" {
			if secrets == nil {
				return savedInternalMsg{err: errNoKeyring}
			}
			if err := secrets.Set(credential.MailboxKey(cfg.Mailbox.Username), password); err != nil {
				return savedInternalMsg{err: fmt.Errorf("saving mailbox password: %w", err)}
			}
		}
		if save != nil {
			if err := save(cfg); err != nil {
				return savedInternalMsg{err: err}
			}
		}
		return savedInternalMsg{cfg: cfg}
	}
}

// test probes the backend and, when enabled, the mailbox.
func (m Model) test(cfg model.AppConfig) tea.Cmd {
	probes := m.deps.Probes
	secrets := m.deps.Secrets
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()

		var res TestResultMsg
		if probes.API != nil {
			res.API = probes.API(ctx, cfg.API.BaseURL)
		}
		if cfg.Mailbox.Enabled && probes.Mailbox != nil {
			res.MailboxTested = true
			password, err := mailboxPassword(secrets, cfg.Mailbox.Username)
			if err != nil {
				res.Mailbox = err
			} else {
				res.Mailbox = probes.Mailbox(ctx, cfg.Mailbox, password)
			}
		}
		return res
	}
}

func mailboxPassword(secrets Secrets, username string) (string, error) {
	if secrets == nil {
		return "", errNoKeyring
	}
	pw, err := secrets.Get(credential.MailboxKey(username))
	if err != nil || pw == "" {
		return "", errors.New("no mailbox password in the keyring")
	}
	return pw, nil
}

func (m *Model) setNote(text string, err error) {
	m.note = text
	m.noteE = err
}

// View renders the settings view for the current mode.
func (m Model) View() string {
	var content string
	switch m.mode {
	case ModeFormAPI, ModeFormMailbox:
		if m.form != nil {
			content = m.form.View()
		}
	case ModeTesting:
		content = fmt.Sprintf("%s Testing connections...\n\nPress esc to cancel.", m.spin.View())
	case ModeTestResult:
		content = m.viewResult()
	default:
		content = m.viewOverview()
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(content)
}

func (m Model) viewOverview() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Settings"))
	b.WriteString("\n\n")

	section := func(title string) {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(title))
		b.WriteString("\n")
	}
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("  %-20s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	section("Backend")
	row("URL", m.cfg.API.BaseURL)
	row("Review poll", fmt.Sprintf("%ds", m.cfg.Polling.ReviewIntervalSec))
	row("Dashboard poll", fmt.Sprintf("%dms", m.cfg.Polling.DashboardIntervalMs))
	b.WriteString("\n")

	section("Feedback inbox")
	if !m.cfg.Mailbox.Enabled {
		row("Status", "disabled")
	} else {
		row("Server", fmt.Sprintf("%s:%d", m.cfg.Mailbox.Host, m.cfg.Mailbox.Port))
		row("Username", m.cfg.Mailbox.Username)
		row("TLS", strconv.FormatBool(m.cfg.Mailbox.TLS))
		row("Poll", fmt.Sprintf("%ds", m.cfg.Polling.MailboxIntervalSec))
	}

	if m.noteE != nil {
		b.WriteString("\n")
		b.WriteString(theme.UrgentStyle.Render(ui.ErrorText(m.noteE)))
	} else if m.note != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(m.note))
		b.WriteString(theme.HelpStyle.Render("  (polling changes apply from the next sign-in)"))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("a backend | m inbox | t test connections | esc back"))
	return b.String()
}

func (m Model) viewResult() string {
	okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
	errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)

	line := func(name string, err error) string {
		if err != nil {
			return errStyle.Render(name+": failed") + "\n  " + ui.ErrorText(err)
		}
		return okStyle.Render(name + ": ok")
	}

	lines := []string{line("Backend", m.last.API)}
	if m.last.MailboxTested {
		lines = append(lines, line("Inbox", m.last.Mailbox))
	}
	lines = append(lines, "", theme.HelpStyle.Render("r retry | enter/esc back"))
	return strings.Join(lines, "\n")
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return ui.Clamp(m.width-4, 40, 100)
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive whole number")
	}
	return nil
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
