package notify

import (
	"context"
	"time"

	"github.com/nhle/guest-review/internal/model"
)

// Panel is the open/closed state of the notification dropdown.
// Opening it marks everything read.
type Panel struct {
	feed *Feed
	open bool
}

// NewPanel returns a closed panel over feed.
func NewPanel(feed *Feed) *Panel {
	return &Panel{feed: feed}
}

// Toggle opens a closed panel (marking all read) or closes an open one.
// It returns the new open state.
func (p *Panel) Toggle(ctx context.Context) bool {
	if p.open {
		p.open = false
		return false
	}
	p.open = true
	p.feed.MarkAllRead(ctx)
	return true
}

// Close closes the panel, e.g. on an interaction outside it.
func (p *Panel) Close() {
	p.open = false
}

// IsOpen reports whether the panel is open.
func (p *Panel) IsOpen() bool {
	return p.open
}

// Destination is the screen a notification leads to.
type Destination int

const (
	DestNone Destination = iota
	DestReviews
	DestCalendar
)

// Navigation tells the UI where to go after a notification is activated.
type Navigation struct {
	To   Destination
	Date time.Time
}

// Activate consumes the notification at index: review notifications lead
// to the reviews list, birthday notifications to the calendar on their
// date, and everything else is simply dismissed.
func (f *Feed) Activate(ctx context.Context, index int) (Navigation, error) {
	items := f.Items()
	if index < 0 || index >= len(items) {
		return Navigation{}, f.Remove(ctx, index)
	}
	n := items[index]

	var nav Navigation
	switch n.Kind {
	case model.KindReview:
		nav.To = DestReviews
	case model.KindBirthday:
		nav.To = DestCalendar
		if d, ok := n.Date(); ok {
			nav.Date = d
		}
	}

	if err := f.Remove(ctx, index); err != nil {
		return Navigation{}, err
	}
	return nav, nil
}
