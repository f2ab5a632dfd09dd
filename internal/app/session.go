package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/jobs"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
	appsync "github.com/nhle/guest-review/internal/sync"
	"github.com/nhle/guest-review/internal/ui"
	"github.com/nhle/guest-review/internal/ui/dashboard"
	"github.com/nhle/guest-review/internal/ui/forms"
	"github.com/nhle/guest-review/internal/ui/records"
)

var errSessionExpired = errors.New("session expired, please sign in again")

// signIn returns a command that authenticates through the session.
func (m Model) signIn(email, password string) tea.Cmd {
	session := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		user, err := session.Login(ctx, email, password)
		return loginResultMsg{user: user, err: err}
	}
}

// reconcileTask adapts a reconciler to a poller task.
func reconcileTask(r notify.Reconciler) appsync.Task {
	return func(ctx context.Context) (interface{}, error) {
		return r.Reconcile(ctx)
	}
}

// startSession applies the signed-in role to the screens, starts the
// notification jobs and loads the dashboard.
func (m *Model) startSession() tea.Cmd {
	if m.deps.Session.Expired(time.Now()) {
		m.log.Info("stored session token has expired")
		return m.logout(errSessionExpired)
	}

	role := m.deps.Session.Role()
	m.reviews.SetRole(role)
	m.users.SetRole(role)
	m.promotions.SetRole(role)

	m.stopJobs()
	cfg := m.deps.Config.Polling
	m.jobHandles = append(m.jobHandles,
		m.deps.Poller.Start(m.deps.Reviews.Name(), cfg.ReviewInterval(), reconcileTask(m.deps.Reviews)))
	if m.deps.Mailbox != nil {
		m.jobHandles = append(m.jobHandles,
			m.deps.Poller.Start(m.deps.Mailbox.Name(), cfg.MailboxInterval(), reconcileTask(m.deps.Mailbox)))
	}
	if m.deps.Birthdays != nil {
		if err := m.deps.Birthdays.Start(); err != nil {
			m.setStatus("", err)
		} else {
			m.birthdaysOn = true
		}
	}

	m.currentView = ViewLogin
	return tea.Batch(
		m.switchView(ViewDashboard),
		m.reviews.Load(),
		m.promotions.Load(),
		m.calendar.Load(),
	)
}

func (m *Model) startDashboard() {
	if m.dashboardJob != 0 {
		return
	}
	m.dashboardJob = m.deps.Poller.Start(dashboard.JobName,
		m.deps.Config.Polling.DashboardInterval(), dashboard.SummaryTask(m.deps.Backend))
}

func (m *Model) stopDashboard() {
	if m.dashboardJob == 0 {
		return
	}
	m.deps.Poller.Stop(m.dashboardJob)
	m.dashboardJob = 0
}

// stopJobs stops every background job of the session.
func (m *Model) stopJobs() {
	for _, h := range m.jobHandles {
		m.deps.Poller.Stop(h)
	}
	m.jobHandles = nil
	m.stopDashboard()
	if m.birthdaysOn {
		m.deps.Birthdays.Stop()
		m.birthdaysOn = false
	}
}

// shutdown stops all jobs before the program exits.
func (m *Model) shutdown() {
	m.stopJobs()
	m.deps.Poller.StopAll()
}

// logout ends the session and returns to the login form. reason, when
// set, is shown in the status bar.
func (m *Model) logout(reason error) tea.Cmd {
	m.stopJobs()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.deps.Session.Logout(ctx); err != nil {
		m.log.Warn("logout did not clear stored session", zap.Error(err))
	}

	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.reviews = records.New(reviewScreen(m.deps.Backend), m.keys, w, h)
	m.users = records.New(userScreen(m.deps.Backend), m.keys, w, h)
	m.promotions = records.New(promotionScreen(m.deps.Backend, time.Now), m.keys, w, h)
	m.dashboard = dashboard.New(m.deps.Backend, w, h)
	m.notifs.Close()

	m.currentView = ViewLogin
	m.setStatus("Signed out", reason)
	var cmd tea.Cmd
	m.login, cmd = forms.NewLogin(w, h)
	return cmd
}

// handleResult applies a finished job to the screens.
func (m *Model) handleResult(msg appsync.ResultMsg) tea.Cmd {
	switch msg.Job {
	case dashboard.JobName:
		summary, _ := msg.Value.(*model.DashboardSummary)
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(dashboard.SummaryMsg{Summary: summary, Err: msg.Err})
		return cmd

	case m.deps.Reviews.Name():
		emitted, _ := msg.Value.([]model.Notification)
		if len(emitted) > 0 && m.currentView == ViewReviews {
			return m.reviews.Load()
		}

	case jobs.BirthdayJobName:
		emitted, _ := msg.Value.([]model.Notification)
		if len(emitted) > 0 {
			m.log.Debug("birthday notifications", zap.Int("count", len(emitted)))
		}
	}
	return nil
}
