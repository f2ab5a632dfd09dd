package model

import (
	"strconv"
	"time"
)

// NotificationKind identifies which reconciler produced a notification.
type NotificationKind string

const (
	KindReview   NotificationKind = "review"
	KindBirthday NotificationKind = "birthday"
	KindEvent    NotificationKind = "event"
	KindGeneric  NotificationKind = "generic"
)

// Metadata keys carried by notifications.
const (
	MetaDepartment = "department"
	MetaRating     = "rating"
	MetaDate       = "date"
	MetaFrom       = "from"
)

// Notification is a single entry in the notification feed, raised when a
// poll discovers a record the user has not been told about yet.
type Notification struct {
	// Key is the stable identifier of the triggering record
	// (a review id, "birthday:<title>", a mail Message-ID).
	Key string `json:"id"`

	// Kind identifies which source produced this notification.
	Kind NotificationKind `json:"type"`

	// Message is the human-readable notification text. The feed
	// deduplicates on this field.
	Message string `json:"message"`

	// Timestamp is when the underlying record was created or detected.
	Timestamp time.Time `json:"timestamp"`

	// Read is kept for display only; the unread counter is tracked
	// separately by the feed.
	Read bool `json:"read"`

	// Urgent marks notifications that need attention regardless of rating.
	Urgent bool `json:"urgent,omitempty"`

	// Metadata holds kind-specific fields (department, rating, date).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsUrgent reports whether the notification should be highlighted:
// either it was flagged urgent or it carries a rating of two or less.
func (n Notification) IsUrgent() bool {
	if n.Urgent {
		return true
	}
	r, ok := n.Rating()
	return ok && r > 0 && r <= 2
}

// Rating returns the rating stored in the metadata, if any.
func (n Notification) Rating() (float64, bool) {
	raw, ok := n.Metadata[MetaRating]
	if !ok || raw == "" {
		return 0, false
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return r, true
}

// Date returns the date stored in the metadata (birthday notifications).
func (n Notification) Date() (time.Time, bool) {
	raw, ok := n.Metadata[MetaDate]
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
