package api

import (
	"context"
	"net/url"
	"strconv"
)

// Query narrows a collection listing. Zero values are omitted.
type Query struct {
	Limit      int
	Department string
	Month      int
	Year       int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Department != "" {
		v.Set("department", q.Department)
	}
	if q.Month > 0 {
		v.Set("month", strconv.Itoa(q.Month))
	}
	if q.Year > 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	return v
}

// Collection is a REST resource exposing list/get/create/update/delete
// under a single path, e.g. /reviews and /reviews/:id.
type Collection[T any] struct {
	client *Client
	path   string

	// createPath overrides the POST target (users register elsewhere).
	createPath string
}

// NewCollection binds a collection to path on client.
func NewCollection[T any](client *Client, path string) *Collection[T] {
	return &Collection[T]{client: client, path: path, createPath: path}
}

// Path returns the collection path.
func (c *Collection[T]) Path() string { return c.path }

// List returns the records matching q in backend order.
func (c *Collection[T]) List(ctx context.Context, q Query) ([]T, error) {
	var items []T
	if err := c.client.Get(ctx, c.path, q.values(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns a single record.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := c.client.Get(ctx, c.itemPath(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create posts payload and returns the stored record when the backend
// echoes it.
func (c *Collection[T]) Create(ctx context.Context, payload interface{}) (*T, error) {
	var item T
	if err := c.client.Post(ctx, c.createPath, payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update replaces the record id with payload.
func (c *Collection[T]) Update(ctx context.Context, id string, payload interface{}) (*T, error) {
	var item T
	if err := c.client.Put(ctx, c.itemPath(id), payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the record id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.client.Delete(ctx, c.itemPath(id))
}

func (c *Collection[T]) itemPath(id string) string {
	return c.path + "/" + url.PathEscape(id)
}
