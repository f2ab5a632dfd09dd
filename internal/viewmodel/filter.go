package viewmodel

import (
	"strconv"
	"strings"
	"time"

	"github.com/nhle/guest-review/internal/model"
)

// All is the sentinel that disables a category or secondary filter.
const All = "all"

// Filter is the user's current search and filter selection for a list.
type Filter struct {
	Search    string
	Category  string
	Secondary string
}

// NewFilter returns a filter that matches everything.
func NewFilter() Filter {
	return Filter{Category: All, Secondary: All}
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && isAll(f.Category) && isAll(f.Secondary)
}

func isAll(v string) bool {
	return v == "" || v == All
}

// Spec describes how a record type is searched and categorised.
// A nil Category or Secondary means the record has no such dimension.
type Spec[T any] struct {
	Text      func(T) []string
	Category  func(T) string
	Secondary func(T) string
}

// Apply returns the items that pass every active predicate of f, in their
// original order. The input slice is never modified.
func Apply[T any](items []T, spec Spec[T], f Filter) []T {
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesText(spec.Text, item, needle) {
			continue
		}
		if !isAll(f.Category) && spec.Category != nil && spec.Category(item) != f.Category {
			continue
		}
		if !isAll(f.Secondary) && spec.Secondary != nil && spec.Secondary(item) != f.Secondary {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesText[T any](text func(T) []string, item T, needle string) bool {
	if text == nil {
		return false
	}
	for _, field := range text(item) {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ReviewSpec searches guest name and comments, categorises by department
// and buckets the rating to whole stars "1".."5".
func ReviewSpec() Spec[model.Review] {
	return Spec[model.Review]{
		Text: func(r model.Review) []string {
			return []string{r.GuestName, r.Username, r.Comment, r.Comments}
		},
		Category: func(r model.Review) string {
			return string(r.Department)
		},
		Secondary: func(r model.Review) string {
			return strconv.Itoa(r.RatingBucket())
		},
	}
}

// UserSpec searches username and email and categorises by role.
func UserSpec() Spec[model.User] {
	return Spec[model.User]{
		Text: func(u model.User) []string {
			return []string{u.Username, u.Email}
		},
		Category: func(u model.User) string {
			return u.Role
		},
	}
}

// PromotionSpec searches title and description and categorises by
// whether the promotion has expired relative to now().
func PromotionSpec(now func() time.Time) Spec[model.Promotion] {
	if now == nil {
		now = time.Now
	}
	return Spec[model.Promotion]{
		Text: func(p model.Promotion) []string {
			return []string{p.Title, p.Description}
		},
		Category: func(p model.Promotion) string {
			return p.Status(now())
		},
	}
}

// Cycle returns the option after current in options, wrapping to All.
// It drives single-key filter switching in list screens.
func Cycle(current string, options []string) string {
	if isAll(current) {
		if len(options) == 0 {
			return All
		}
		return options[0]
	}
	for i, o := range options {
		if o == current && i+1 < len(options) {
			return options[i+1]
		}
	}
	return All
}
