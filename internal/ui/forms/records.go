package forms

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/review"
)

// UserSubmitMsg carries a user to create (ID empty) or update.
// An empty Password on update leaves the password unchanged.
type UserSubmitMsg struct {
	ID   string
	User model.User
}

// NewUser opens the user form; pass nil to create a user.
func NewUser(existing *model.User, width, height int) (Model, tea.Cmd) {
	u := &model.User{Role: model.RoleSubUser}
	if existing != nil {
		*u = *existing
		u.Password = ""
	}
	editing := existing != nil

	build := func(w, h int) *huh.Form {
		roles := make([]huh.Option[string], len(model.Roles))
		for i, r := range model.Roles {
			roles[i] = huh.NewOption(r, r)
		}

		password := huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&u.Password)
		if editing {
			password = password.Description("leave empty to keep the current password")
		} else {
			password = password.Validate(validateRequired("Password"))
		}

		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Username").Value(&u.Username).
					Validate(validateRequired("Username")),
				huh.NewInput().Title("Email").Value(&u.Email).
					Validate(review.CheckEmail),
				huh.NewSelect[string]().Title("Role").Options(roles...).Value(&u.Role),
				password,
			),
		).WithWidth(w).WithHeight(h)
	}

	submit := func() (tea.Msg, error) {
		out := *u
		out.Username = strings.TrimSpace(out.Username)
		out.Email = strings.TrimSpace(out.Email)
		u.Password = ""
		if !editing {
			return UserSubmitMsg{User: out}, nil
		}
		return UserSubmitMsg{ID: existing.ID, User: out}, nil
	}

	title := "New User"
	if editing {
		title = "Edit User"
	}
	return newModel(title, width, height, build, submit)
}

// PromotionSubmitMsg carries a promotion to create (ID empty) or update.
type PromotionSubmitMsg struct {
	ID        string
	Promotion model.Promotion
}

type promotionBindings struct {
	title       string
	description string
	discount    string
	validFrom   string
	validTo     string
}

// NewPromotion opens the promotion form; pass nil to create one.
func NewPromotion(existing *model.Promotion, width, height int) (Model, tea.Cmd) {
	b := &promotionBindings{}
	if existing != nil {
		b.title = existing.Title
		b.description = existing.Description
		b.discount = strconv.FormatFloat(existing.Discount, 'f', -1, 64)
		b.validFrom = model.FormatDate(existing.ValidFrom)
		b.validTo = model.FormatDate(existing.ValidTo)
	}

	build := func(w, h int) *huh.Form {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Title").Value(&b.title).
					Validate(validateRequired("Title")),
				huh.NewText().Title("Description").Value(&b.description),
				huh.NewInput().Title("Discount (%)").Value(&b.discount).
					Validate(validateDiscount),
				huh.NewInput().Title("Valid From").Placeholder("dd-mm-yyyy").Value(&b.validFrom).
					Validate(validateDate(true)),
				huh.NewInput().Title("Valid To").Placeholder("dd-mm-yyyy").Value(&b.validTo).
					Validate(validateDate(true)),
			),
		).WithWidth(w).WithHeight(h)
	}

	submit := func() (tea.Msg, error) {
		from, err := parseDisplayDate(b.validFrom)
		if err != nil {
			return nil, err
		}
		to, err := parseDisplayDate(b.validTo)
		if err != nil {
			return nil, err
		}
		if to.Before(from) {
			return nil, fmt.Errorf("valid to must not be before valid from")
		}
		discount, err := strconv.ParseFloat(strings.TrimSpace(b.discount), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid discount %q", b.discount)
		}

		p := model.Promotion{
			Title:       strings.TrimSpace(b.title),
			Description: b.description,
			Discount:    discount,
			ValidFrom:   from,
			ValidTo:     to,
		}
		if existing != nil {
			return PromotionSubmitMsg{ID: existing.ID, Promotion: p}, nil
		}
		return PromotionSubmitMsg{Promotion: p}, nil
	}

	title := "New Promotion"
	if existing != nil {
		title = "Edit Promotion"
	}
	return newModel(title, width, height, build, submit)
}

func validateDiscount(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("discount must be a number")
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("discount must be between 0 and 100")
	}
	return nil
}

// EventSubmitMsg carries a new calendar event.
type EventSubmitMsg struct {
	Event model.CalendarEvent
}

type eventBindings struct {
	title     string
	kind      string
	date      string
	recurring bool
}

// NewEvent opens the add-event form with the date prefilled.
func NewEvent(date string, width, height int) (Model, tea.Cmd) {
	b := &eventBindings{kind: model.EventTypes[0], date: date}

	build := func(w, h int) *huh.Form {
		kinds := make([]huh.Option[string], len(model.EventTypes))
		for i, k := range model.EventTypes {
			kinds[i] = huh.NewOption(k, k)
		}
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Title").Value(&b.title).
					Validate(validateRequired("Title")),
				huh.NewSelect[string]().Title("Type").Options(kinds...).Value(&b.kind),
				huh.NewInput().Title("Date").Placeholder("dd-mm-yyyy").Value(&b.date).
					Validate(validateDate(true)),
				huh.NewConfirm().Title("Recurring yearly?").Value(&b.recurring),
			),
		).WithWidth(w).WithHeight(h)
	}

	submit := func() (tea.Msg, error) {
		day, err := parseDisplayDate(b.date)
		if err != nil {
			return nil, err
		}
		title := strings.TrimSpace(b.title)
		if b.kind == "Birthday" && !strings.HasPrefix(title, model.BirthdayPrefix) {
			title = model.BirthdayPrefix + " " + title
		}
		return EventSubmitMsg{Event: model.CalendarEvent{
			Title:     title,
			StartDate: day,
			EndDate:   day,
			Type:      b.kind,
			Recurring: b.recurring,
		}}, nil
	}

	return newModel("New Event", width, height, build, submit)
}
