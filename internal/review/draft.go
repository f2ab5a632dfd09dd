package review

import (
	"strings"
	"time"

	"github.com/nhle/guest-review/internal/model"
)

// RatingField is one aspect a guest rates on a department form.
type RatingField struct {
	Key   string
	Label string
}

var ratingFields = map[model.Department][]RatingField{
	model.DepartmentRestaurant: {
		{"ambiance", "Ambiance of the Restaurant"},
		{"presentation", "Presentation of Food Items and Quality"},
		{"staff", "Staff Service and Friendliness"},
		{"cleanliness", "Cleanliness"},
		{"value", "Value for Money"},
	},
	model.DepartmentBanquet: {
		{"ambiance", "Ambiance of the Venue"},
		{"staff", "Staff Service and Friendliness"},
		{"cleanliness", "Cleanliness"},
		{"value", "Value for Money"},
	},
	model.DepartmentFrontOffice: {
		{"cleanliness", "Room Cleanliness"},
		{"bed", "Bed Comfort"},
		{"view", "Room View"},
		{"value", "Value for Money"},
	},
	model.DepartmentHousekeeping: {
		{"cleanliness", "Cleanliness"},
		{"staff", "Staff Service and Friendliness"},
		{"value", "Value for Money"},
	},
}

// RatingFields returns the rating aspects of the department's form.
func RatingFields(d model.Department) []RatingField {
	return ratingFields[d]
}

// DateField is a department-specific date captured on the form.
type DateField struct {
	Key   string
	Label string
}

var dateFields = map[model.Department][]DateField{
	model.DepartmentRestaurant:   {{"visit_date", "Visit Date"}},
	model.DepartmentFrontOffice:  {{"checkin_date", "Check-in Date"}, {"checkout_date", "Check-out Date"}},
	model.DepartmentHousekeeping: {{"service_date", "Service Date"}},
}

// DateFields returns the date inputs of the department's form.
func DateFields(d model.Department) []DateField {
	return dateFields[d]
}

// Draft is an unsubmitted review as typed into a department form.
// Dates are entered as dd-mm-yyyy.
type Draft struct {
	Department    model.Department   `validate:"required,department"`
	GuestName     string             `validate:"required"`
	Email         string             `validate:"required,guestemail"`
	ReviewTakenBy string             `validate:"required"`
	Phone         string             `validate:"omitempty,phone"`
	DOB           string             `validate:"omitempty,ddmmyyyy"`
	Dates         map[string]string  `validate:"dive,keys,required,endkeys,omitempty,ddmmyyyy"`
	Ratings       map[string]float64 `validate:"dive,keys,required,endkeys,min=0,max=5"`
	Comments      string             `validate:"required"`
}

// NewDraft returns an empty draft for d with every rating at zero and the
// first date field set to today, as the paper forms are filled in.
func NewDraft(d model.Department, today time.Time) *Draft {
	draft := &Draft{
		Department: d,
		Dates:      make(map[string]string),
		Ratings:    make(map[string]float64),
	}
	for _, f := range RatingFields(d) {
		draft.Ratings[f.Key] = 0
	}
	for i, f := range DateFields(d) {
		if i == 0 {
			draft.Dates[f.Key] = model.FormatDate(today)
		} else {
			draft.Dates[f.Key] = ""
		}
	}
	return draft
}

// Average returns the mean of the ratings above zero, or zero when none
// were given.
func (d *Draft) Average() float64 {
	var sum float64
	var n int
	for _, r := range d.Ratings {
		if r > 0 {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Payload converts the draft to the record sent to POST /reviews.
// Call Validate first.
func (d *Draft) Payload() model.Review {
	r := model.Review{
		Username:      d.GuestName,
		GuestName:     d.GuestName,
		Email:         d.Email,
		ReviewTakenBy: d.ReviewTakenBy,
		Phone:         d.Phone,
		DOB:           toISODate(d.DOB),
		Department:    d.Department,
		Rating:        d.Average(),
		Ratings:       make(map[string]float64, len(d.Ratings)),
		Comment:       d.Comments,
		Comments:      d.Comments,
		VisitDate:     toISODate(d.Dates["visit_date"]),
		CheckinDate:   toISODate(d.Dates["checkin_date"]),
		CheckoutDate:  toISODate(d.Dates["checkout_date"]),
		ServiceDate:   toISODate(d.Dates["service_date"]),
	}
	for k, v := range d.Ratings {
		r.Ratings[k] = v
	}
	return r
}

// toISODate turns dd-mm-yyyy into yyyy-mm-dd; anything else becomes "".
func toISODate(s string) string {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

// DraftFrom loads an existing review into a draft for editing.
func DraftFrom(r model.Review) *Draft {
	d := NewDraft(r.Department, time.Time{})
	d.GuestName = r.GuestName
	if d.GuestName == "" {
		d.GuestName = r.Username
	}
	d.Email = r.Email
	d.ReviewTakenBy = r.ReviewTakenBy
	d.Phone = r.Phone
	d.DOB = fromISODate(r.DOB)
	d.Comments = r.Comments
	if d.Comments == "" {
		d.Comments = r.Comment
	}

	stored := map[string]string{
		"visit_date":    r.VisitDate,
		"checkin_date":  r.CheckinDate,
		"checkout_date": r.CheckoutDate,
		"service_date":  r.ServiceDate,
	}
	for _, f := range DateFields(r.Department) {
		d.Dates[f.Key] = fromISODate(stored[f.Key])
	}
	for _, f := range RatingFields(r.Department) {
		if v, ok := r.Ratings[f.Key]; ok {
			d.Ratings[f.Key] = v
		}
	}
	return d
}

// fromISODate turns yyyy-mm-dd (optionally followed by a time) into dd-mm-yyyy.
func fromISODate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}
