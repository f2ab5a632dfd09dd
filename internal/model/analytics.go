package model

import "time"

// DashboardSummary is the aggregate returned by /analytics/dashboard.
type DashboardSummary struct {
	TotalReviews     int     `json:"totalReviews"`
	ActiveUsers      int     `json:"activeUsers"`
	ActivePromotions int     `json:"activePromotions"`
	AvgRating        float64 `json:"avgRating"`
}

// DepartmentCount is one row of /analytics/reviews-by-department.
type DepartmentCount struct {
	Department string `json:"_id"`
	Count      int    `json:"count"`
}

// RatingCount is one row of /analytics/rating-distribution.
type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// Activity is one row of /analytics/recent-activity.
type Activity struct {
	Message    string    `json:"message"`
	Department string    `json:"department,omitempty"`
	Rating     float64   `json:"rating,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
