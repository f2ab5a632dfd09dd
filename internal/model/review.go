package model

import (
	"math"
	"time"
)

// Department identifies the hotel department a review belongs to.
type Department string

const (
	DepartmentFrontOffice  Department = "Front Office"
	DepartmentRestaurant   Department = "Restaurant"
	DepartmentBanquet      Department = "Banquet"
	DepartmentHousekeeping Department = "Housekeeping"
)

// Departments lists every department in display order.
var Departments = []Department{
	DepartmentFrontOffice,
	DepartmentRestaurant,
	DepartmentBanquet,
	DepartmentHousekeeping,
}

// Review is a guest review as stored by the backend.
type Review struct {
	// ID is the backend identifier.
	ID string `json:"_id"`

	// Username mirrors GuestName; older records only carry this field.
	Username string `json:"username,omitempty"`

	GuestName     string `json:"guest_name"`
	Email         string `json:"email,omitempty"`
	ReviewTakenBy string `json:"review_taken_by,omitempty"`
	Phone         string `json:"phone,omitempty"`

	// DOB is the guest's date of birth in yyyy-mm-dd form.
	DOB string `json:"dob,omitempty"`

	Department Department `json:"department"`

	// Rating is either a whole 1-5 value or the average of Ratings.
	Rating float64 `json:"rating"`

	// Ratings holds the per-aspect ratings of department forms.
	Ratings map[string]float64 `json:"ratings,omitempty"`

	Comment  string `json:"comment"`
	Comments string `json:"comments,omitempty"`

	// Department-specific dates, yyyy-mm-dd.
	VisitDate    string `json:"visit_date,omitempty"`
	CheckinDate  string `json:"checkin_date,omitempty"`
	CheckoutDate string `json:"checkout_date,omitempty"`
	ServiceDate  string `json:"service_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Text returns the review body, preferring comment over comments.
func (r Review) Text() string {
	if r.Comment != "" {
		return r.Comment
	}
	return r.Comments
}

// RatingBucket returns the rating rounded to the nearest star.
func (r Review) RatingBucket() int {
	return int(math.Round(r.Rating))
}

// IsUrgent reports whether the review needs attention (two stars or less).
func (r Review) IsUrgent() bool {
	return r.Rating > 0 && r.Rating <= 2
}
