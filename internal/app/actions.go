package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/credential"
	"github.com/nhle/guest-review/internal/mailbox"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
	"github.com/nhle/guest-review/internal/review"
	"github.com/nhle/guest-review/internal/ui"
	"github.com/nhle/guest-review/internal/ui/command"
	"github.com/nhle/guest-review/internal/ui/forms"
	"github.com/nhle/guest-review/internal/ui/settings"
)

// savedMsg reports a finished create or update.
type savedMsg struct {
	view ViewState
	text string
	err  error
}

func newDraft(d model.Department) *review.Draft {
	return review.NewDraft(d, time.Now())
}

func draftFrom(r model.Review) *review.Draft {
	return review.DraftFrom(r)
}

// mutate runs fn with a request timeout and wraps its outcome in a savedMsg.
func mutate(view ViewState, text string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return savedMsg{view: view, err: err}
		}
		return savedMsg{view: view, text: text}
	}
}

func (m Model) saveReview(msg forms.ReviewSubmitMsg) tea.Cmd {
	reviews := m.deps.Backend.Reviews
	if msg.ID == "" {
		return mutate(ViewReviews, "Review submitted", func(ctx context.Context) error {
			_, err := reviews.Create(ctx, msg.Review)
			return err
		})
	}
	return mutate(ViewReviews, "Review updated", func(ctx context.Context) error {
		_, err := reviews.Update(ctx, msg.ID, msg.Review)
		return err
	})
}

func (m Model) saveUser(msg forms.UserSubmitMsg) tea.Cmd {
	users := m.deps.Backend.Users
	if msg.ID == "" {
		return mutate(ViewUsers, "User "+msg.User.Username+" created", func(ctx context.Context) error {
			_, err := users.Create(ctx, msg.User)
			return err
		})
	}
	return mutate(ViewUsers, "User "+msg.User.Username+" updated", func(ctx context.Context) error {
		_, err := users.Update(ctx, msg.ID, msg.User)
		return err
	})
}

func (m Model) savePromotion(msg forms.PromotionSubmitMsg) tea.Cmd {
	promotions := m.deps.Backend.Promotions
	if msg.ID == "" {
		return mutate(ViewPromotions, "Promotion created", func(ctx context.Context) error {
			_, err := promotions.Create(ctx, msg.Promotion)
			return err
		})
	}
	return mutate(ViewPromotions, "Promotion updated", func(ctx context.Context) error {
		_, err := promotions.Update(ctx, msg.ID, msg.Promotion)
		return err
	})
}

// saveEvent creates the event and announces it in the notification feed.
func (m Model) saveEvent(msg forms.EventSubmitMsg) tea.Cmd {
	events := m.deps.Backend.Events
	feed := m.deps.Feed
	return mutate(ViewCalendar, "Event added", func(ctx context.Context) error {
		created, err := events.Create(ctx, msg.Event)
		if err != nil {
			return err
		}
		ev := msg.Event
		if created != nil && created.Title != "" {
			ev = *created
		}
		notify.NotifyEventCreated(ctx, feed, ev)
		return nil
	})
}

func (m Model) storeSecret(msg forms.SecretMsg) tea.Cmd {
	vault := m.deps.Vault
	return func() tea.Msg {
		if vault == nil {
			return ui.StatusMsg{Err: errors.New("no keyring available")}
		}
		if err := vault.Set(msg.Key, msg.Value); err != nil {
			return ui.StatusMsg{Err: err}
		}
		return ui.StatusMsg{Text: "Saved to keyring; restart to connect the inbox"}
	}
}

// openSettings shows the settings view over the current screen. The
// dashboard poll stops while it is hidden.
func (m *Model) openSettings() {
	if m.currentView == ViewDashboard {
		m.stopDashboard()
	}
	m.previousView = m.currentView
	m.currentView = ViewSettings
	m.settings = settings.New(m.settingsDeps(), m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
}

func (m Model) settingsDeps() settings.Deps {
	path := m.deps.ConfigPath
	timeout := m.deps.Config.API.Timeout()
	log := m.log
	d := settings.Deps{
		Config: m.deps.Config,
		Save: func(cfg model.AppConfig) error {
			if path == "" {
				return errors.New("no config file to save to")
			}
			return model.SaveConfig(path, &cfg)
		},
		Probes: settings.Probes{
			API: func(ctx context.Context, baseURL string) error {
				return api.NewClient(baseURL, timeout, log).Ping(ctx)
			},
			Mailbox: func(ctx context.Context, cfg model.MailboxConfig, password string) error {
				_, err := mailbox.NewIMAPClient(cfg, password, log).Recent(ctx)
				return err
			},
		},
	}
	if m.deps.Vault != nil {
		d.Secrets = m.deps.Vault
	}
	return d
}

// reload refreshes the screen a mutation touched.
func (m Model) reload(view ViewState) tea.Cmd {
	switch view {
	case ViewReviews:
		return tea.Batch(m.reviews.Load(), m.dashboard.LoadDetails())
	case ViewUsers:
		return m.users.Load()
	case ViewPromotions:
		return m.promotions.Load()
	case ViewCalendar:
		return m.calendar.Load()
	}
	return nil
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	name, args := cmd.Fields()

	switch name {
	case "dashboard", "home":
		return m.switchView(ViewDashboard)
	case "reviews":
		return m.switchView(ViewReviews)
	case "calendar", "events":
		return m.switchView(ViewCalendar)
	case "promotions":
		return m.switchView(ViewPromotions)
	case "users":
		return m.switchView(ViewUsers)
	case "refresh", "sync":
		for _, h := range m.jobHandles {
			m.deps.Poller.Refresh(h)
		}
		return m.reload(m.currentView)
	case "notifications":
		m.notifs.Toggle()
		return nil
	case "clear-notifications":
		m.deps.Feed.Clear(context.Background())
		return ui.Status("Notifications cleared")
	case "config":
		if len(args) > 0 && args[0] == "save" {
			if err := model.SaveConfig(m.deps.ConfigPath, &m.deps.Config); err != nil {
				return ui.Fail(err)
			}
			return ui.Status("Configuration saved to " + m.deps.ConfigPath)
		}
		return ui.Fail(fmt.Errorf("usage: config save"))
	case "settings":
		m.openSettings()
		return nil
	case "mailbox-password":
		user := m.deps.Config.Mailbox.Username
		if user == "" {
			return ui.Fail(errors.New("set mailbox.username in the config first"))
		}
		return m.openForm(func(w, h int) (forms.Model, tea.Cmd) {
			return forms.NewSecret("Mailbox password for "+user, credential.MailboxKey(user), w, h)
		})
	case "logout":
		return m.logout(nil)
	case "quit", "q":
		m.shutdown()
		return tea.Quit
	default:
		m.log.Debug("unknown command", zap.String("command", string(cmd)))
		return ui.Fail(fmt.Errorf("unknown command %q", string(cmd)))
	}
}
