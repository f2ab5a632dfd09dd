// Command guestdesk is the terminal front desk for the guest review
// backend: reviews, promotions, users, the event calendar and a live
// notification feed.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/app"
	"github.com/nhle/guest-review/internal/auth"
	"github.com/nhle/guest-review/internal/credential"
	"github.com/nhle/guest-review/internal/jobs"
	"github.com/nhle/guest-review/internal/logger"
	"github.com/nhle/guest-review/internal/mailbox"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
	"github.com/nhle/guest-review/internal/store"
	appsync "github.com/nhle/guest-review/internal/sync"
)

const resultBuffer = 32

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "guestdesk:", err)
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("GUESTDESK_CONFIG"); p != "" {
		return p
	}
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return model.DefaultConfigPath()
}

func run() error {
	path := configPath()
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	kv, err := store.Open(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Warn("closing storage", zap.Error(err))
		}
	}()

	ctx := context.Background()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), log)
	backend := api.NewBackend(client)

	session := auth.NewSession(kv, backend, client, log)
	if session.Restore(ctx) {
		log.Info("resumed stored session", zap.String("role", session.Role()))
	}

	feed := notify.NewFeed(ctx, kv, cfg.Notifications.Capacity, log)
	poller := appsync.New(log, resultBuffer)

	reviewSeen := notify.NewSeenSet(ctx, kv, store.KeyNotifiedReviewIDs, log)
	reviews := notify.NewReviewReconciler(backend.Reviews, reviewSeen, feed, log)

	birthdaySeen := notify.NewSeenSet(ctx, kv, store.KeyNotifiedBirthdayTitles, log)
	birthdays := notify.NewBirthdayReconciler(backend.Events, birthdaySeen, feed, cfg.Birthday.WindowDays, log)
	birthdayJob := jobs.NewBirthdayJob(birthdays, poller, cfg.Birthday.Schedule, log)

	deps := app.Deps{
		Config:     *cfg,
		ConfigPath: path,
		Backend:    backend,
		Session:    session,
		Feed:       feed,
		Poller:     poller,
		Reviews:    reviews,
		Birthdays:  birthdayJob,
		Logger:     log,
	}

	vault, err := credential.Open()
	if err != nil {
		log.Warn("system keyring unavailable", zap.Error(err))
	} else {
		deps.Vault = vault
	}

	if cfg.Mailbox.Enabled {
		if rec := openMailbox(ctx, cfg.Mailbox, vault, kv, feed, log); rec != nil {
			deps.Mailbox = rec
		}
	}

	p := tea.NewProgram(app.New(deps), tea.WithAltScreen())
	_, err = p.Run()
	poller.StopAll()
	return err
}

// openMailbox builds the inbox reconciler, or returns nil when the
// password has not been stored in the keyring yet.
func openMailbox(ctx context.Context, cfg model.MailboxConfig, vault *credential.Vault, kv store.KV, feed *notify.Feed, log *zap.Logger) notify.Reconciler {
	if vault == nil {
		log.Warn("mailbox enabled but no keyring to read its password from")
		return nil
	}
	password, err := vault.Get(credential.MailboxKey(cfg.Username))
	if err != nil {
		log.Warn("mailbox password not set; run :mailbox-password", zap.Error(err))
		return nil
	}
	seen := notify.NewSeenSet(ctx, kv, store.KeyNotifiedMailIDs, log)
	return notify.NewMailboxReconciler(mailbox.NewIMAPClient(cfg, password, log), seen, feed, log)
}
