package notify

import (
	"context"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/store"
)

// DefaultCapacity is the number of notifications the feed keeps.
const DefaultCapacity = 20

// Feed is the ordered, bounded list of notifications shown to the user,
// newest first, plus an unread counter.
//
// The unread counter is independent bookkeeping: it is incremented by
// every accepted Add and only reset by MarkAllRead or Clear. It is not
// derived from the feed's length or from individual Read flags.
type Feed struct {
	kv       store.KV
	log      *zap.Logger
	capacity int
	now      func() time.Time

	mu     gosync.Mutex
	items  []model.Notification
	unread int
}

// NewFeed hydrates a feed from the notifications and unreadCount keys.
func NewFeed(ctx context.Context, kv store.KV, capacity int, log *zap.Logger) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	f := &Feed{
		kv:       kv,
		log:      log.Named("feed"),
		capacity: capacity,
		now:      time.Now,
	}

	var items []model.Notification
	if store.GetJSON(ctx, kv, store.KeyNotifications, &items) {
		if len(items) > capacity {
			items = items[:capacity]
		}
		f.items = items
	}
	if raw, ok := kv.Get(ctx, store.KeyUnreadCount); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			f.unread = n
		}
	}
	return f
}

// Add prepends n unless a notification with the same message is already
// in the feed. It reports whether n was added.
func (f *Feed) Add(ctx context.Context, n model.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.items {
		if existing.Message == n.Message {
			return false
		}
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = f.now()
	}

	items := make([]model.Notification, 0, len(f.items)+1)
	items = append(items, n)
	items = append(items, f.items...)
	if len(items) > f.capacity {
		items = items[:f.capacity]
	}
	f.items = items
	f.unread++

	f.persist(ctx)
	return true
}

// MarkAllRead resets the unread counter. Individual Read flags are left as is.
func (f *Feed) MarkAllRead(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unread = 0
	f.persist(ctx)
}

// Remove deletes the notification at index. The unread counter is unchanged.
func (f *Feed) Remove(ctx context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if index < 0 || index >= len(f.items) {
		return fmt.Errorf("notification index %d out of range [0,%d)", index, len(f.items))
	}
	items := make([]model.Notification, 0, len(f.items)-1)
	items = append(items, f.items[:index]...)
	items = append(items, f.items[index+1:]...)
	f.items = items

	f.persist(ctx)
	return nil
}

// Clear empties the feed and resets the unread counter.
func (f *Feed) Clear(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = nil
	f.unread = 0
	f.persist(ctx)
}

// Items returns a copy of the feed, newest first.
func (f *Feed) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Unread returns the unread counter.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// Len returns the number of notifications in the feed.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// persist writes the feed and counter. Caller holds f.mu.
func (f *Feed) persist(ctx context.Context) {
	items := f.items
	if items == nil {
		items = []model.Notification{}
	}
	if err := store.SetJSON(ctx, f.kv, store.KeyNotifications, items); err != nil {
		f.log.Warn("persisting notifications", zap.Error(err))
	}
	if err := f.kv.Set(ctx, store.KeyUnreadCount, strconv.Itoa(f.unread)); err != nil {
		f.log.Warn("persisting unread count", zap.Error(err))
	}
}
