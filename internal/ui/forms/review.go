package forms

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/review"
)

// DepartmentPickedMsg is sent when the user chose which department form
// to fill in.
type DepartmentPickedMsg struct {
	Department model.Department
}

// ReviewSubmitMsg carries a validated review. ID is empty for new reviews.
type ReviewSubmitMsg struct {
	ID     string
	Review model.Review
}

// NewDepartmentPicker asks which department the new review is for.
func NewDepartmentPicker(width, height int) (Model, tea.Cmd) {
	dept := new(model.Department)
	*dept = model.DepartmentFrontOffice

	build := func(w, h int) *huh.Form {
		opts := make([]huh.Option[model.Department], len(model.Departments))
		for i, d := range model.Departments {
			opts[i] = huh.NewOption(string(d), d)
		}
		return huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[model.Department]().
					Title("Department").
					Options(opts...).
					Value(dept),
			),
		).WithWidth(w).WithHeight(h)
	}

	submit := func() (tea.Msg, error) {
		return DepartmentPickedMsg{Department: *dept}, nil
	}

	return newModel("New Review", width, height, build, submit)
}

// reviewBindings mirrors a review.Draft with one slot per form input.
// Ratings and dates follow the order of the department's field lists.
type reviewBindings struct {
	guestName     string
	email         string
	reviewTakenBy string
	phone         string
	dob           string
	dates         []string
	ratings       []int
	comments      string
}

// NewReview opens the department form for a new review, or for editing
// id when it is non-empty.
func NewReview(draft *review.Draft, id string, width, height int) (Model, tea.Cmd) {
	ratingFields := review.RatingFields(draft.Department)
	dateFields := review.DateFields(draft.Department)

	b := &reviewBindings{
		guestName:     draft.GuestName,
		email:         draft.Email,
		reviewTakenBy: draft.ReviewTakenBy,
		phone:         draft.Phone,
		dob:           draft.DOB,
		dates:         make([]string, len(dateFields)),
		ratings:       make([]int, len(ratingFields)),
		comments:      draft.Comments,
	}
	for i, f := range dateFields {
		b.dates[i] = draft.Dates[f.Key]
	}
	for i, f := range ratingFields {
		b.ratings[i] = int(draft.Ratings[f.Key] + 0.5)
	}

	build := func(w, h int) *huh.Form {
		guest := []huh.Field{
			huh.NewInput().Title("Guest Name").Value(&b.guestName).
				Validate(validateRequired("Guest name")),
			huh.NewInput().Title("Email").Value(&b.email).
				Validate(review.CheckEmail),
			huh.NewInput().Title("Phone").Placeholder("optional, 10-15 digits").Value(&b.phone).
				Validate(review.CheckPhone),
			huh.NewInput().Title("Date of Birth").Placeholder("dd-mm-yyyy (optional)").Value(&b.dob).
				Validate(review.CheckDate),
			huh.NewInput().Title("Review Taken By").Value(&b.reviewTakenBy).
				Validate(validateRequired("Review taken by")),
		}
		for i, f := range dateFields {
			guest = append(guest, huh.NewInput().
				Title(f.Label).
				Placeholder("dd-mm-yyyy").
				Value(&b.dates[i]).
				Validate(review.CheckDate))
		}

		ratings := make([]huh.Field, 0, len(ratingFields)+1)
		for i, f := range ratingFields {
			ratings = append(ratings, huh.NewSelect[int]().
				Title(f.Label).
				Options(ratingOptions()...).
				Value(&b.ratings[i]).
				Inline(true))
		}
		ratings = append(ratings, huh.NewText().
			Title("Comments").
			Value(&b.comments).
			Validate(validateRequired("Comments")))

		return huh.NewForm(
			huh.NewGroup(guest...).Title("Guest"),
			huh.NewGroup(ratings...).Title("Ratings"),
		).WithWidth(w).WithHeight(h)
	}

	submit := func() (tea.Msg, error) {
		d := review.NewDraft(draft.Department, time.Time{})
		d.GuestName = b.guestName
		d.Email = b.email
		d.ReviewTakenBy = b.reviewTakenBy
		d.Phone = b.phone
		d.DOB = b.dob
		d.Comments = b.comments
		for i, f := range dateFields {
			d.Dates[f.Key] = b.dates[i]
		}
		for i, f := range ratingFields {
			d.Ratings[f.Key] = float64(b.ratings[i])
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return ReviewSubmitMsg{ID: id, Review: d.Payload()}, nil
	}

	title := fmt.Sprintf("New %s Review", draft.Department)
	if id != "" {
		title = fmt.Sprintf("Edit %s Review", draft.Department)
	}
	return newModel(title, width, height, build, submit)
}

func ratingOptions() []huh.Option[int] {
	opts := []huh.Option[int]{huh.NewOption("not rated", 0)}
	for r := 1; r <= 5; r++ {
		opts = append(opts, huh.NewOption(model.Stars(float64(r))+" "+strconv.Itoa(r), r))
	}
	return opts
}
