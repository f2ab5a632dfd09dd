package notify

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/mailbox"
	"github.com/nhle/guest-review/internal/model"
)

// Reconciler compares freshly fetched records with what the user has
// already been told about and emits notifications for the rest.
//
// A failed fetch returns the error and leaves all state untouched.
type Reconciler interface {
	Name() string
	Reconcile(ctx context.Context) ([]model.Notification, error)
}

// ReviewLister lists reviews; *api.Collection[model.Review] satisfies it.
type ReviewLister interface {
	List(ctx context.Context, q api.Query) ([]model.Review, error)
}

// EventLister lists the calendar events of a month; *api.Events satisfies it.
type EventLister interface {
	ListMonth(ctx context.Context, month time.Month, year int) ([]model.CalendarEvent, error)
}

// MailSource returns recent inbox envelopes; *mailbox.IMAPClient satisfies it.
type MailSource interface {
	Recent(ctx context.Context) ([]mailbox.Envelope, error)
}

// ReviewReconciler announces the newest review once.
type ReviewReconciler struct {
	reviews ReviewLister
	seen    *SeenSet
	feed    *Feed
	log     *zap.Logger
}

// NewReviewReconciler creates a reconciler that records announced review ids in seen.
func NewReviewReconciler(reviews ReviewLister, seen *SeenSet, feed *Feed, log *zap.Logger) *ReviewReconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewReconciler{reviews: reviews, seen: seen, feed: feed, log: log.Named("reconcile.review")}
}

// Name returns "reviews".
func (r *ReviewReconciler) Name() string { return "reviews" }

// Reconcile looks only at the most recent review.
func (r *ReviewReconciler) Reconcile(ctx context.Context) ([]model.Notification, error) {
	reviews, err := r.reviews.List(ctx, api.Query{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("listing latest review: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(reviews) == 0 || reviews[0].ID == "" {
		return nil, nil
	}

	latest := reviews[0]
	if !r.seen.Add(ctx, latest.ID) {
		return nil, nil
	}

	n := model.Notification{
		Key:       latest.ID,
		Kind:      model.KindReview,
		Message:   "A new review is added by the guest for " + string(latest.Department),
		Timestamp: latest.CreatedAt,
		Metadata: map[string]string{
			model.MetaDepartment: string(latest.Department),
			model.MetaRating:     strconv.FormatFloat(latest.Rating, 'f', -1, 64),
		},
	}
	if !r.feed.Add(ctx, n) {
		r.log.Debug("review notification already in feed", zap.String("review", latest.ID))
		return nil, nil
	}
	r.log.Info("new review", zap.String("review", latest.ID), zap.String("department", string(latest.Department)))
	return []model.Notification{n}, nil
}

// BirthdayReconciler announces guest birthdays falling within the window.
type BirthdayReconciler struct {
	events EventLister
	seen   *SeenSet
	feed   *Feed
	window int
	now    func() time.Time
	log    *zap.Logger
}

// NewBirthdayReconciler creates a reconciler for birthdays up to windowDays ahead
// (7 when windowDays is not positive).
func NewBirthdayReconciler(events EventLister, seen *SeenSet, feed *Feed, windowDays int, log *zap.Logger) *BirthdayReconciler {
	if windowDays <= 0 {
		windowDays = 7
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BirthdayReconciler{
		events: events,
		seen:   seen,
		feed:   feed,
		window: windowDays,
		now:    time.Now,
		log:    log.Named("reconcile.birthday"),
	}
}

// Name returns "birthdays".
func (b *BirthdayReconciler) Name() string { return "birthdays" }

// Reconcile scans this month and next month. Both months are fetched
// before anything is recorded, so a failure on either leaves state as is.
func (b *BirthdayReconciler) Reconcile(ctx context.Context) ([]model.Notification, error) {
	now := b.now()
	next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())

	current, err := b.events.ListMonth(ctx, now.Month(), now.Year())
	if err != nil {
		return nil, fmt.Errorf("listing events for %d-%02d: %w", now.Year(), now.Month(), err)
	}
	upcoming, err := b.events.ListMonth(ctx, next.Month(), next.Year())
	if err != nil {
		return nil, fmt.Errorf("listing events for %d-%02d: %w", next.Year(), next.Month(), err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var emitted []model.Notification
	for _, ev := range append(current, upcoming...) {
		if !ev.IsBirthday() {
			continue
		}
		days := DaysUntil(now, ev.StartDate)
		if days < 0 || days > b.window {
			continue
		}
		if !b.seen.Add(ctx, ev.Title) {
			continue
		}

		n := model.Notification{
			Key:       "birthday:" + ev.Title,
			Kind:      model.KindBirthday,
			Message:   fmt.Sprintf("Upcoming guest birthday: %s in %d day(s).", ev.GuestName(), days),
			Timestamp: now,
			Metadata: map[string]string{
				model.MetaDate: ev.StartDate.UTC().Format(time.RFC3339),
			},
		}
		if b.feed.Add(ctx, n) {
			emitted = append(emitted, n)
		}
	}
	if len(emitted) > 0 {
		b.log.Info("upcoming birthdays", zap.Int("count", len(emitted)))
	}
	return emitted, nil
}

// DaysUntil returns the number of days from now to t, rounded up, so an
// event later today counts as 0 and one 30 hours away as 2.
func DaysUntil(now, t time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// MailboxReconciler announces new emails in the guest feedback inbox.
type MailboxReconciler struct {
	mail MailSource
	seen *SeenSet
	feed *Feed
	log  *zap.Logger
}

// NewMailboxReconciler creates a reconciler over the feedback inbox read by mail.
func NewMailboxReconciler(mail MailSource, seen *SeenSet, feed *Feed, log *zap.Logger) *MailboxReconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxReconciler{mail: mail, seen: seen, feed: feed, log: log.Named("reconcile.mailbox")}
}

// Name returns "mailbox".
func (m *MailboxReconciler) Name() string { return "mailbox" }

// Reconcile announces each unseen envelope once, keyed by Envelope.Key.
func (m *MailboxReconciler) Reconcile(ctx context.Context) ([]model.Notification, error) {
	envelopes, err := m.mail.Recent(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading feedback inbox: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var emitted []model.Notification
	for _, env := range envelopes {
		if !m.seen.Add(ctx, env.Key()) {
			continue
		}
		n := model.Notification{
			Key:       env.Key(),
			Kind:      model.KindGeneric,
			Message:   fmt.Sprintf("New guest email from %s: %s", env.From, env.Subject),
			Timestamp: env.Date,
			Metadata: map[string]string{
				model.MetaFrom: env.From,
			},
		}
		if m.feed.Add(ctx, n) {
			emitted = append(emitted, n)
		}
	}
	return emitted, nil
}

// NotifyEventCreated adds the notification shown after a calendar event
// is created from this client.
func NotifyEventCreated(ctx context.Context, feed *Feed, ev model.CalendarEvent) bool {
	return feed.Add(ctx, model.Notification{
		Key:     uuid.NewString(),
		Kind:    model.KindEvent,
		Message: "New event \"" + ev.Title + "\" added to calendar.",
		Metadata: map[string]string{
			model.MetaDate: ev.StartDate.UTC().Format(time.RFC3339),
		},
	})
}
