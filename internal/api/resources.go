package api

import (
	"context"
	"time"

	"github.com/nhle/guest-review/internal/model"
)

// Backend groups every resource of the guest review API.
type Backend struct {
	Client     *Client
	Reviews    *Collection[model.Review]
	Users      *Collection[model.User]
	Promotions *Collection[model.Promotion]
	Events     *Events
	Analytics  *Analytics
}

// NewBackend wires all resources onto client.
func NewBackend(client *Client) *Backend {
	users := NewCollection[model.User](client, "/users")
	users.createPath = "/users/register"
	return &Backend{
		Client:     client,
		Reviews:    NewCollection[model.Review](client, "/reviews"),
		Users:      users,
		Promotions: NewCollection[model.Promotion](client, "/promotions"),
		Events:     &Events{Collection: NewCollection[model.CalendarEvent](client, "/events")},
		Analytics:  &Analytics{client: client},
	}
}

// LatestReviews returns the newest n reviews.
func (b *Backend) LatestReviews(ctx context.Context, n int) ([]model.Review, error) {
	return b.Reviews.List(ctx, Query{Limit: n})
}

// Events is the calendar resource.
type Events struct {
	*Collection[model.CalendarEvent]
}

// ListMonth returns the events of a calendar month (1-12).
func (e *Events) ListMonth(ctx context.Context, month time.Month, year int) ([]model.CalendarEvent, error) {
	return e.List(ctx, Query{Month: int(month), Year: year})
}

// Analytics exposes the read-only aggregate endpoints.
type Analytics struct {
	client *Client
}

func (a *Analytics) Dashboard(ctx context.Context) (*model.DashboardSummary, error) {
	var out model.DashboardSummary
	if err := a.client.Get(ctx, "/analytics/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Analytics) ReviewsByDepartment(ctx context.Context) ([]model.DepartmentCount, error) {
	var out []model.DepartmentCount
	if err := a.client.Get(ctx, "/analytics/reviews-by-department", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analytics) RatingDistribution(ctx context.Context) ([]model.RatingCount, error) {
	var out []model.RatingCount
	if err := a.client.Get(ctx, "/analytics/rating-distribution", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analytics) RecentActivity(ctx context.Context) ([]model.Activity, error) {
	var out []model.Activity
	if err := a.client.Get(ctx, "/analytics/recent-activity", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoginResponse is the body of a successful /users/login.
type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a session token.
func (b *Backend) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResponse
	if err := b.Client.Post(ctx, "/users/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
