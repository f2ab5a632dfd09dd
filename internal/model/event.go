package model

import (
	"strings"
	"time"
)

// BirthdayPrefix marks calendar events that represent a guest birthday.
const BirthdayPrefix = "Birthday:"

// Calendar event types offered by the add-event form.
var EventTypes = []string{"Appointment", "Meeting", "Reminder", "Birthday", "Other"}

// CalendarEvent is an entry on the hotel calendar.
type CalendarEvent struct {
	ID        string    `json:"_id,omitempty"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Type      string    `json:"type,omitempty"`
	Recurring bool      `json:"recurring,omitempty"`

	// ReviewID links events the backend creates for submitted reviews.
	ReviewID string `json:"review_id,omitempty"`
}

// IsBirthday reports whether the event title carries the birthday prefix.
func (e CalendarEvent) IsBirthday() bool {
	return strings.HasPrefix(e.Title, BirthdayPrefix)
}

// GuestName returns the title without the birthday prefix.
func (e CalendarEvent) GuestName() string {
	return strings.TrimSpace(strings.TrimPrefix(e.Title, BirthdayPrefix))
}
