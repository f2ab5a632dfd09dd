package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotification_IsUrgent(t *testing.T) {
	low := Notification{Metadata: map[string]string{MetaRating: "2"}}
	high := Notification{Metadata: map[string]string{MetaRating: "4.5"}}
	flagged := Notification{Urgent: true}
	none := Notification{}

	assert.True(t, low.IsUrgent())
	assert.False(t, high.IsUrgent())
	assert.True(t, flagged.IsUrgent())
	assert.False(t, none.IsUrgent())
}

func TestReview_RatingBucket(t *testing.T) {
	assert.Equal(t, 4, Review{Rating: 3.6}.RatingBucket())
	assert.Equal(t, 3, Review{Rating: 3.4}.RatingBucket())
	assert.Equal(t, 5, Review{Rating: 5}.RatingBucket())
}

func TestReview_Text(t *testing.T) {
	assert.Equal(t, "great stay", Review{Comment: "great stay", Comments: "other"}.Text())
	assert.Equal(t, "other", Review{Comments: "other"}.Text())
}

func TestCalendarEvent_Birthday(t *testing.T) {
	ev := CalendarEvent{Title: "Birthday: Jane Doe"}
	assert.True(t, ev.IsBirthday())
	assert.Equal(t, "Jane Doe", ev.GuestName())
	assert.False(t, CalendarEvent{Title: "Staff meeting"}.IsBirthday())
}

func TestPromotion_Status(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := Promotion{ValidTo: now.Add(-time.Hour)}
	assert.Equal(t, PromotionExpired, p.Status(now))
	p.ValidTo = now.Add(time.Hour)
	assert.Equal(t, PromotionActive, p.Status(now))
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★☆☆", Stars(3))
	assert.Equal(t, "★★★★★", Stars(9))
	assert.Equal(t, "☆☆☆☆☆", Stars(-1))
}
