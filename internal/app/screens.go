package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/review"
	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui/detail"
	"github.com/nhle/guest-review/internal/ui/records"
	"github.com/nhle/guest-review/internal/viewmodel"
)

func departmentOptions() []string {
	out := make([]string, len(model.Departments))
	for i, d := range model.Departments {
		out[i] = string(d)
	}
	return out
}

func reviewScreen(b *api.Backend) records.Config[model.Review] {
	return records.Config[model.Review]{
		Title:          "Guest Reviews",
		Noun:           "review",
		Spec:           viewmodel.ReviewSpec(),
		Categories:     departmentOptions(),
		CategoryLabel:  "department",
		Secondaries:    []string{"5", "4", "3", "2", "1"},
		SecondaryLabel: "rating",
		Gate:           viewmodel.MasterOnly(),
		CanAdd:         true,
		ID:             func(r model.Review) string { return r.ID },
		Label:          reviewName,
		Row:            reviewRow,
		Detail:         reviewDetail,
		Load: func(ctx context.Context) ([]model.Review, error) {
			return b.Reviews.List(ctx, api.Query{})
		},
		Deleter: b.Reviews,
	}
}

func reviewName(r model.Review) string {
	if r.GuestName != "" {
		return r.GuestName
	}
	return r.Username
}

func reviewRow(r model.Review) string {
	stars := theme.RatingStyle(r.Rating).Render(model.Stars(r.Rating))
	name := reviewName(r)
	if r.IsUrgent() {
		name = theme.UrgentStyle.Render(name)
	}
	dept := theme.DepartmentStyle(r.Department).Render(fmt.Sprintf("%-12s", r.Department))
	return fmt.Sprintf("%s %s %-20s %s  %s",
		theme.HelpStyle.Render(model.FormatDate(r.CreatedAt)), stars, name, dept, firstLine(r.Text()))
}

func reviewDetail(r model.Review) detail.Document {
	doc := detail.Document{
		Title: reviewName(r),
		Badges: []string{
			theme.DepartmentStyle(r.Department).Render(string(r.Department)),
			theme.RatingStyle(r.Rating).Render(fmt.Sprintf("%s %.1f", model.Stars(r.Rating), r.Rating)),
		},
		Fields: []detail.Field{
			{Label: "Email", Value: r.Email},
			{Label: "Phone", Value: r.Phone},
			{Label: "Taken by", Value: r.ReviewTakenBy},
			{Label: "Submitted", Value: model.FormatDate(r.CreatedAt)},
		},
	}

	stored := map[string]string{
		"visit_date":    r.VisitDate,
		"checkin_date":  r.CheckinDate,
		"checkout_date": r.CheckoutDate,
		"service_date":  r.ServiceDate,
	}
	for _, f := range review.DateFields(r.Department) {
		doc.Fields = append(doc.Fields, detail.Field{Label: f.Label, Value: stored[f.Key]})
	}

	if len(r.Ratings) > 0 {
		var lines []string
		for _, f := range review.RatingFields(r.Department) {
			if v, ok := r.Ratings[f.Key]; ok {
				lines = append(lines, fmt.Sprintf("%-14s %s", f.Label, theme.RatingStyle(v).Render(model.Stars(v))))
			}
		}
		doc.Sections = append(doc.Sections, detail.Section{Title: "Ratings", Body: strings.Join(lines, "\n")})
	}

	doc.Sections = append(doc.Sections, detail.Section{Title: "Comments", Body: r.Text()})
	return doc
}

func userScreen(b *api.Backend) records.Config[model.User] {
	return records.Config[model.User]{
		Title:         "Users",
		Noun:          "user",
		Spec:          viewmodel.UserSpec(),
		Categories:    model.Roles,
		CategoryLabel: "role",
		Gate:          viewmodel.MasterOnly(),
		CanAdd:        true,
		ID:            func(u model.User) string { return u.ID },
		Label:         func(u model.User) string { return u.Username },
		Row: func(u model.User) string {
			role := u.Role
			if u.IsMaster() {
				role = lipgloss.NewStyle().Foreground(theme.ColorOrange).Render(role)
			}
			return fmt.Sprintf("%-20s %-30s %s", u.Username, u.Email, role)
		},
		Detail: func(u model.User) detail.Document {
			return detail.Document{
				Title:  u.Username,
				Badges: []string{theme.BadgeStyle.Render(u.Role)},
				Fields: []detail.Field{
					{Label: "Email", Value: u.Email},
					{Label: "Joined", Value: model.FormatDate(u.CreatedAt)},
				},
			}
		},
		Load: func(ctx context.Context) ([]model.User, error) {
			return b.Users.List(ctx, api.Query{})
		},
		Deleter: b.Users,
	}
}

func promotionScreen(b *api.Backend, now func() time.Time) records.Config[model.Promotion] {
	return records.Config[model.Promotion]{
		Title:         "Promotions",
		Noun:          "promotion",
		Spec:          viewmodel.PromotionSpec(now),
		Categories:    []string{model.PromotionActive, model.PromotionExpired},
		CategoryLabel: "status",
		Gate:          viewmodel.Open(),
		CanAdd:        true,
		ID:            func(p model.Promotion) string { return p.ID },
		Label:         func(p model.Promotion) string { return p.Title },
		Row: func(p model.Promotion) string {
			status := p.Status(now())
			return fmt.Sprintf("%-28s %5s%%  %s → %s %s",
				p.Title,
				strconv.FormatFloat(p.Discount, 'f', -1, 64),
				model.FormatDate(p.ValidFrom),
				model.FormatDate(p.ValidTo),
				theme.PromotionStyle(status).Render(status))
		},
		Detail: func(p model.Promotion) detail.Document {
			status := p.Status(now())
			return detail.Document{
				Title:  p.Title,
				Badges: []string{theme.PromotionStyle(status).Render(status)},
				Fields: []detail.Field{
					{Label: "Discount", Value: strconv.FormatFloat(p.Discount, 'f', -1, 64) + "%"},
					{Label: "Valid from", Value: model.FormatDate(p.ValidFrom)},
					{Label: "Valid to", Value: model.FormatDate(p.ValidTo)},
				},
				Sections: []detail.Section{{Title: "Description", Body: p.Description}},
			}
		},
		Load: func(ctx context.Context) ([]model.Promotion, error) {
			items, err := b.Promotions.List(ctx, api.Query{})
			if err != nil {
				return nil, err
			}
			sort.SliceStable(items, func(i, j int) bool {
				return items[i].ValidTo.After(items[j].ValidTo)
			})
			return items, nil
		},
		Deleter: b.Promotions,
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
