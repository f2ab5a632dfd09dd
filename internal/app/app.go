package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/auth"
	"github.com/nhle/guest-review/internal/credential"
	"github.com/nhle/guest-review/internal/jobs"
	"github.com/nhle/guest-review/internal/keys"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
	appsync "github.com/nhle/guest-review/internal/sync"
	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui"
	"github.com/nhle/guest-review/internal/ui/calendar"
	"github.com/nhle/guest-review/internal/ui/command"
	"github.com/nhle/guest-review/internal/ui/dashboard"
	"github.com/nhle/guest-review/internal/ui/forms"
	helpview "github.com/nhle/guest-review/internal/ui/help"
	"github.com/nhle/guest-review/internal/ui/notifications"
	"github.com/nhle/guest-review/internal/ui/records"
	"github.com/nhle/guest-review/internal/ui/settings"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewDashboard
	ViewReviews
	ViewCalendar
	ViewPromotions
	ViewUsers
	ViewHelp
	ViewCommand
	ViewForm
	ViewSettings
)

var viewTitles = map[ViewState]string{
	ViewLogin:      "Sign in",
	ViewDashboard:  "Dashboard",
	ViewReviews:    "Reviews",
	ViewCalendar:   "Calendar",
	ViewPromotions: "Promotions",
	ViewUsers:      "Users",
	ViewHelp:       "Help",
	ViewCommand:    "Command",
	ViewSettings:   "Settings",
}

// screens is the tab order of the main screens.
var screens = []ViewState{ViewDashboard, ViewReviews, ViewCalendar, ViewPromotions, ViewUsers}

var errMasterOnly = errors.New("user management is limited to Master accounts")

// Deps are the collaborators the app drives. Mailbox and Vault are
// optional.
type Deps struct {
	Config     model.AppConfig
	ConfigPath string
	Backend    *api.Backend
	Session    *auth.Session
	Feed       *notify.Feed
	Poller     *appsync.Poller
	Reviews    notify.Reconciler
	Birthdays  *jobs.BirthdayJob
	Mailbox    notify.Reconciler
	Vault      *credential.Vault
	Logger     *zap.Logger
}

// sessionStartedMsg starts the background jobs for a signed-in user.
type sessionStartedMsg struct{}

// loginResultMsg carries the outcome of a sign-in attempt.
type loginResultMsg struct {
	user *model.User
	err  error
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the background jobs of the signed-in session.
type Model struct {
	deps Deps
	log  *zap.Logger
	keys *keys.KeyMap

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ready        bool

	login       forms.Model
	form        forms.Model
	dashboard   dashboard.Model
	reviews     records.Model[model.Review]
	users       records.Model[model.User]
	promotions  records.Model[model.Promotion]
	calendar    calendar.Model
	notifs      notifications.Model
	helpView    helpview.Model
	commandView command.Model
	settings    settings.Model

	initCmd      tea.Cmd
	jobHandles   []appsync.Handle
	dashboardJob appsync.Handle
	birthdaysOn  bool
	signingIn    bool
	statusText   string
	statusErr    error
}

// New creates the root model. A session restored from the store starts
// on the dashboard; otherwise the login form is shown.
func New(d Deps) Model {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	k := keys.DefaultKeyMap()

	m := Model{
		deps:        d,
		log:         d.Logger.Named("app"),
		keys:        k,
		dashboard:   dashboard.New(d.Backend, 80, 24),
		reviews:     records.New(reviewScreen(d.Backend), k, 80, 24),
		users:       records.New(userScreen(d.Backend), k, 80, 24),
		promotions:  records.New(promotionScreen(d.Backend, time.Now), k, 80, 24),
		calendar:    calendar.New(d.Backend.Events, k, 80, 24),
		notifs:      notifications.New(d.Feed, notify.NewPanel(d.Feed), k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}

	if _, ok := d.Session.User(); ok {
		m.currentView = ViewDashboard
		m.initCmd = func() tea.Msg { return sessionStartedMsg{} }
	} else {
		m.currentView = ViewLogin
		m.login, m.initCmd = forms.NewLogin(80, 24)
	}
	return m
}

// Init starts listening for job results and either signs in or resumes
// the stored session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.initCmd,
		m.deps.Poller.WaitForNextResult(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.login.SetSize(w, h)
		m.form.SetSize(w, h)
		m.dashboard.SetSize(w, h)
		m.reviews.SetSize(w, h)
		m.users.SetSize(w, h)
		m.promotions.SetSize(w, h)
		m.calendar.SetSize(w, h)
		m.notifs.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.ResultMsg:
		cmd := m.handleResult(msg)
		return m, tea.Batch(cmd, m.deps.Poller.WaitForNextResult())

	case sessionStartedMsg:
		cmd := m.startSession()
		return m, cmd

	case forms.LoginMsg:
		m.signingIn = true
		return m, m.signIn(msg.Email, msg.Password)

	case loginResultMsg:
		m.signingIn = false
		if msg.err != nil {
			m.setStatus("", msg.err)
			var cmd tea.Cmd
			m.login, cmd = forms.NewLogin(m.layout.ContentWidth(), m.layout.ContentHeight())
			return m, cmd
		}
		m.setStatus("Signed in as "+msg.user.Username, nil)
		cmd := m.startSession()
		return m, cmd

	case ui.StatusMsg:
		m.setStatus(msg.Text, msg.Err)
		return m, nil

	case notifications.NavigateMsg:
		switch msg.Nav.To {
		case notify.DestReviews:
			cmd := m.switchView(ViewReviews)
			return m, cmd
		case notify.DestCalendar:
			cmd := m.switchView(ViewCalendar)
			if !msg.Nav.Date.IsZero() {
				cmd = tea.Batch(cmd, m.calendar.Focus(msg.Nav.Date))
			}
			return m, cmd
		}
		return m, nil

	case notifications.ClosedMsg:
		return m, nil

	case settings.DoneMsg:
		cmd := m.switchView(m.previousView)
		return m, cmd

	case settings.SavedMsg:
		m.deps.Config = msg.Config
		m.setStatus("Settings saved to "+m.deps.ConfigPath, nil)
		return m, nil

	case settings.TestResultMsg:
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg)
		return m, cmd

	// List screens
	case records.LoadedMsg[model.Review], records.DeletedMsg[model.Review]:
		var cmd tea.Cmd
		m.reviews, cmd = m.reviews.Update(msg)
		return m, cmd

	case records.LoadedMsg[model.User], records.DeletedMsg[model.User]:
		var cmd tea.Cmd
		m.users, cmd = m.users.Update(msg)
		return m, cmd

	case records.LoadedMsg[model.Promotion], records.DeletedMsg[model.Promotion]:
		var cmd tea.Cmd
		m.promotions, cmd = m.promotions.Update(msg)
		return m, cmd

	case dashboard.DetailsMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		return m, cmd

	case calendar.EventsLoadedMsg:
		var cmd tea.Cmd
		m.calendar, cmd = m.calendar.Update(msg)
		return m, cmd

	// Forms
	case records.AddMsg[model.Review]:
		cmd := m.openForm(forms.NewDepartmentPicker)
		return m, cmd

	case forms.DepartmentPickedMsg:
		draft := newDraft(msg.Department)
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewReview(draft, "", w, h)
		})
		return m, cmd

	case records.EditMsg[model.Review]:
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewReview(draftFrom(msg.Item), msg.Item.ID, w, h)
		})
		return m, cmd

	case records.AddMsg[model.User]:
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewUser(nil, w, h)
		})
		return m, cmd

	case records.EditMsg[model.User]:
		u := msg.Item
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewUser(&u, w, h)
		})
		return m, cmd

	case records.AddMsg[model.Promotion]:
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewPromotion(nil, w, h)
		})
		return m, cmd

	case records.EditMsg[model.Promotion]:
		p := msg.Item
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewPromotion(&p, w, h)
		})
		return m, cmd

	case calendar.AddEventMsg:
		date := model.FormatDate(msg.Date)
		cmd := m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewEvent(date, w, h)
		})
		return m, cmd

	case forms.CancelMsg:
		m.closeForm()
		return m, nil

	case forms.ReviewSubmitMsg:
		m.closeForm()
		return m, m.saveReview(msg)

	case forms.UserSubmitMsg:
		m.closeForm()
		return m, m.saveUser(msg)

	case forms.PromotionSubmitMsg:
		m.closeForm()
		return m, m.savePromotion(msg)

	case forms.EventSubmitMsg:
		m.closeForm()
		return m, m.saveEvent(msg)

	case forms.SecretMsg:
		m.closeForm()
		return m, m.storeSecret(msg)

	case savedMsg:
		if msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		m.setStatus(msg.text, nil)
		return m, m.reload(msg.view)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleKey routes a key press. Overlays and inputs that capture raw text
// get the key before any global binding is considered.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.currentView {
	case ViewLogin:
		return m.updateActiveView(msg)

	case ViewForm:
		if msg.String() == "esc" {
			m.closeForm()
			return m, nil
		}
		return m.updateActiveView(msg)

	case ViewSettings:
		return m.updateActiveView(msg)

	case ViewCommand:
		if msg.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		return m.updateActiveView(msg)

	case ViewHelp:
		switch msg.String() {
		case "?", "esc", "q":
			m.currentView = m.previousView
		}
		return m, nil
	}

	if m.notifs.IsOpen() {
		var cmd tea.Cmd
		m.notifs, cmd = m.notifs.Update(msg)
		return m, cmd
	}

	if m.capturing() {
		return m.updateActiveView(msg)
	}

	// A new key press clears a stale status.
	m.setStatus("", nil)

	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit

	case "?":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd

	case "b":
		m.notifs.Toggle()
		return m, nil

	case "tab":
		cmd := m.switchView(m.nextScreen(1))
		return m, cmd

	case "shift+tab":
		cmd := m.switchView(m.nextScreen(-1))
		return m, cmd
	}

	return m.updateActiveView(msg)
}

// capturing reports whether the active screen is consuming raw keys.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewReviews:
		return m.reviews.Capturing()
	case ViewUsers:
		return m.users.Capturing()
	case ViewPromotions:
		return m.promotions.Capturing()
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		if m.signingIn {
			return m, nil
		}
		m.login, cmd = m.login.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewReviews:
		m.reviews, cmd = m.reviews.Update(msg)
	case ViewUsers:
		m.users, cmd = m.users.Update(msg)
	case ViewPromotions:
		m.promotions, cmd = m.promotions.Update(msg)
	case ViewCalendar:
		m.calendar, cmd = m.calendar.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

// nextScreen returns the screen dir steps away in tab order, skipping
// screens the role cannot open.
func (m Model) nextScreen(dir int) ViewState {
	idx := 0
	for i, v := range screens {
		if v == m.currentView {
			idx = i
		}
	}
	for range screens {
		idx = (idx + dir + len(screens)) % len(screens)
		if screens[idx] != ViewUsers || m.isMaster() {
			return screens[idx]
		}
	}
	return m.currentView
}

func (m Model) isMaster() bool {
	return m.deps.Session.Role() == model.RoleMaster
}

// switchView moves to a main screen, starting the dashboard poll only
// while the dashboard is showing and refreshing the target list.
func (m *Model) switchView(v ViewState) tea.Cmd {
	if v == ViewUsers && !m.isMaster() {
		return ui.Fail(errMasterOnly)
	}
	m.notifs.Close()

	if m.currentView == v {
		return nil
	}
	if m.currentView == ViewDashboard {
		m.stopDashboard()
	}
	m.currentView = v

	switch v {
	case ViewDashboard:
		m.startDashboard()
		return m.dashboard.LoadDetails()
	case ViewReviews:
		return m.reviews.Load()
	case ViewUsers:
		return m.users.Load()
	case ViewPromotions:
		return m.promotions.Load()
	case ViewCalendar:
		return m.calendar.Load()
	}
	return nil
}

func (m *Model) openForm(open func(w, h int) (forms.Model, tea.Cmd)) tea.Cmd {
	if m.currentView != ViewForm {
		m.previousView = m.currentView
	}
	m.currentView = ViewForm
	var cmd tea.Cmd
	m.form, cmd = open(m.layout.ContentWidth(), m.layout.ContentHeight())
	return cmd
}

func (m *Model) closeForm() {
	m.form = forms.Model{}
	if m.currentView == ViewForm {
		m.currentView = m.previousView
	}
}

func (m *Model) setStatus(text string, err error) {
	m.statusText = text
	m.statusErr = err
	if err != nil {
		m.log.Debug("status error", zap.Error(err))
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Guest Review Desk · " + viewTitles[m.currentView]
	if m.currentView == ViewForm {
		title = "Guest Review Desk · " + m.form.Title()
	}
	header := m.layout.RenderHeader(title, m.deps.Feed.Unread(), m.headerRight())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), ui.ErrorText(m.statusErr))

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	var content string
	switch m.currentView {
	case ViewLogin:
		content = m.login.View()
		if m.signingIn {
			content += "\n" + theme.HelpStyle.Render("Signing in...")
		}
	case ViewForm:
		content = m.form.View()
	case ViewDashboard:
		content = m.dashboard.View()
	case ViewReviews:
		content = m.reviews.View()
	case ViewUsers:
		content = m.users.View()
	case ViewPromotions:
		content = m.promotions.View()
	case ViewCalendar:
		content = m.calendar.View()
	case ViewHelp:
		content = m.helpView.View()
	case ViewCommand:
		content = m.commandView.View()
	case ViewSettings:
		content = m.settings.View()
	}

	if m.notifs.IsOpen() {
		return lipgloss.PlaceHorizontal(m.layout.ContentWidth(), lipgloss.Right, m.notifs.View())
	}
	return content
}

// headerRight shows job health and the signed-in user.
func (m Model) headerRight() string {
	var parts []string
	if s := m.syncStatus(); s != "" {
		parts = append(parts, s)
	}
	if u, ok := m.deps.Session.User(); ok {
		parts = append(parts, fmt.Sprintf("%s (%s)", u.Username, u.Role))
	}
	return strings.Join(parts, " · ")
}

// syncStatus returns a short string describing the combined job state.
func (m Model) syncStatus() string {
	var failing []string
	running := 0
	for _, s := range m.deps.Poller.Statuses() {
		switch s.State {
		case appsync.JobRunning:
			running++
		case appsync.JobError:
			failing = append(failing, s.Name)
		}
	}
	if len(failing) > 0 {
		return "⚠ " + strings.Join(failing, ", ") + " unreachable"
	}
	if running > 0 {
		return "syncing"
	}
	return ""
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusText != "" {
		return m.statusText
	}
	if m.notifs.IsOpen() {
		return "enter open | d dismiss | c clear | esc close"
	}

	switch m.currentView {
	case ViewLogin:
		return "enter sign in | ctrl+c quit"
	case ViewForm:
		return "enter next | shift+tab back | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewSettings:
		return "enter next | esc back"
	case ViewReviews:
		return "/ search | 1 department | 2 rating | n add | e edit | d delete | b notifications | ? help"
	case ViewUsers:
		return "/ search | 1 role | n add | e edit | d delete | ? help"
	case ViewPromotions:
		return "/ search | 1 status | n add | e edit | d delete | ? help"
	case ViewCalendar:
		return "h/l month | j/k day | n add event | r refresh | ? help"
	default:
		return "tab screens | b notifications | : command | ? help | q quit"
	}
}
