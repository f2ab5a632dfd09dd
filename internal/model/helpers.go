package model

import (
	"strings"
	"time"
)

// FormatDate renders a date the way the front desk reads it (dd-mm-yyyy).
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02-01-2006")
}

// Stars renders a rating as a five-character star bar.
func Stars(rating float64) string {
	full := int(rating + 0.5)
	if full < 0 {
		full = 0
	}
	if full > 5 {
		full = 5
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}
