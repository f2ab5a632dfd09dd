package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/model"
)

// fakeBackend is an in-process stand-in for the guest review REST API.
type fakeBackend struct {
	reviews   []model.Review
	hits      int32
	lastAuth  atomic.Value
	lastQuery atomic.Value
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Backend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fb := &fakeBackend{
		reviews: []model.Review{
			{ID: "r2", GuestName: "Ann", Department: model.DepartmentRestaurant, Rating: 4},
			{ID: "r1", GuestName: "Bob", Department: model.DepartmentBanquet, Rating: 2},
		},
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		atomic.AddInt32(&fb.hits, 1)
		fb.lastAuth.Store(c.GetHeader("Authorization"))
		fb.lastQuery.Store(c.Request.URL.RawQuery)
		c.Next()
	})
	r.GET("/api/reviews", func(c *gin.Context) {
		out := fb.reviews
		if n, err := strconv.Atoi(c.Query("limit")); err == nil && n < len(out) {
			out = out[:n]
		}
		c.JSON(http.StatusOK, out)
	})
	r.DELETE("/api/reviews/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"message": "Review not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
	})
	r.POST("/api/users/register", func(c *gin.Context) {
		var u model.User
		if err := c.ShouldBindJSON(&u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		u.ID = "u-new"
		c.JSON(http.StatusCreated, u)
	})
	r.POST("/api/users/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"token": "jwt-token",
			"user":  gin.H{"_id": "u1", "username": "clerk", "email": "clerk@hotel.com", "role": "Sub-User"},
		})
	})
	r.GET("/api/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"_id": "e1", "title": "Birthday: Ann", "start_date": "2024-06-03T00:00:00Z", "end_date": "2024-06-03T00:00:00Z"}})
	})
	r.GET("/api/analytics/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"totalReviews": 12, "activeUsers": 3, "activePromotions": 1, "avgRating": 4.2})
	})
	r.GET("/api/analytics/reviews-by-department", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"_id": "Restaurant", "count": 7}})
	})
	r.GET("/api/promotions", func(c *gin.Context) {
		c.String(http.StatusOK, "not json")
	})
	r.GET("/api/slow", func(c *gin.Context) {
		time.Sleep(200 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/api/", 5*time.Second, zap.NewNop())
	return fb, NewBackend(client)
}

func TestCollection_ListWithLimit(t *testing.T) {
	fb, b := newFakeBackend(t)

	reviews, err := b.LatestReviews(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "r2", reviews[0].ID)
	assert.Equal(t, "limit=1", fb.lastQuery.Load())
}

func TestClient_AttachesBearerToken(t *testing.T) {
	fb, b := newFakeBackend(t)

	_, err := b.Reviews.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "", fb.lastAuth.Load())

	b.Client.SetToken("abc")
	_, err = b.Reviews.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", fb.lastAuth.Load())
}

func TestCollection_DeleteNotFoundIsServerError(t *testing.T) {
	_, b := newFakeBackend(t)

	err := b.Reviews.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsServerError(err))

	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusNotFound, srvErr.Status)
	assert.Equal(t, "Review not found", srvErr.Message)
	assert.Equal(t, "Review not found", Message(err))

	assert.NoError(t, b.Reviews.Delete(context.Background(), "r1"))
}

func TestUsers_CreateUsesRegister(t *testing.T) {
	_, b := newFakeBackend(t)

	u, err := b.Users.Create(context.Background(), model.User{Username: "new", Email: "n@h.com", Role: model.RoleSubUser, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u-new", u.ID)
	assert.Equal(t, "new", u.Username)
}

func TestLogin(t *testing.T) {
	_, b := newFakeBackend(t)

	resp, err := b.Login(context.Background(), "clerk@hotel.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", resp.Token)
	assert.Equal(t, "clerk", resp.User.Username)
	assert.Equal(t, model.RoleSubUser, resp.User.Role)
}

func TestEvents_ListMonth(t *testing.T) {
	fb, b := newFakeBackend(t)

	events, err := b.Events.ListMonth(context.Background(), time.June, 2024)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsBirthday())
	assert.Equal(t, "month=6&year=2024", fb.lastQuery.Load())
}

func TestAnalytics(t *testing.T) {
	_, b := newFakeBackend(t)
	ctx := context.Background()

	summary, err := b.Analytics.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalReviews)
	assert.InDelta(t, 4.2, summary.AvgRating, 0.001)

	byDept, err := b.Analytics.ReviewsByDepartment(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.DepartmentCount{{Department: "Restaurant", Count: 7}}, byDept)
}

func TestClient_DecodeError(t *testing.T) {
	_, b := newFakeBackend(t)

	_, err := b.Promotions.List(context.Background(), Query{})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.False(t, IsServerError(err))
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())

	err := client.Get(context.Background(), "/reviews", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Equal(t, "backend unreachable", Message(err))
}

func TestClient_CancelledContextIsNetworkError(t *testing.T) {
	_, b := newFakeBackend(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Client.Get(ctx, "/slow", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&ServerError{Status: http.StatusUnauthorized}))
	assert.False(t, IsUnauthorized(&ServerError{Status: http.StatusNotFound}))
	assert.False(t, IsUnauthorized(&NetworkError{}))
}

func TestClient_Ping(t *testing.T) {
	_, b := newFakeBackend(t)
	assert.NoError(t, b.Client.Ping(context.Background()))

	// Any status counts as reachable.
	missing := NewClient(b.Client.baseURL+"/nowhere", time.Second, zap.NewNop())
	assert.NoError(t, missing.Ping(context.Background()))

	down := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())
	assert.True(t, IsNetworkError(down.Ping(context.Background())))
}
