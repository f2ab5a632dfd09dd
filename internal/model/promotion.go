package model

import "time"

// Promotion status values used by the promotions filter.
const (
	PromotionActive  = "active"
	PromotionExpired = "expired"
)

// Promotion is a discount offer shown to guests.
type Promotion struct {
	ID          string    `json:"_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Discount    float64   `json:"discount"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidTo     time.Time `json:"valid_to"`
}

// Expired reports whether the promotion ended before now.
func (p Promotion) Expired(now time.Time) bool {
	return p.ValidTo.Before(now)
}

// Status returns PromotionActive or PromotionExpired relative to now.
func (p Promotion) Status(now time.Time) string {
	if p.Expired(now) {
		return PromotionExpired
	}
	return PromotionActive
}
