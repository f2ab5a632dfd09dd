package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/auth"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
	"github.com/nhle/guest-review/internal/store"
	appsync "github.com/nhle/guest-review/internal/sync"
	"github.com/nhle/guest-review/internal/ui"
	"github.com/nhle/guest-review/internal/ui/command"
	"github.com/nhle/guest-review/internal/ui/notifications"
	"github.com/nhle/guest-review/internal/ui/settings"
)

type harness struct {
	kv   *store.MemoryStore
	deps Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/api/reviews", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"_id": "r1", "guestName": "Ann", "department": "Restaurant", "rating": 5},
		})
	})
	r.GET("/api/users", func(c *gin.Context) { c.JSON(http.StatusOK, []gin.H{}) })
	r.GET("/api/promotions", func(c *gin.Context) { c.JSON(http.StatusOK, []gin.H{}) })
	r.GET("/api/events", func(c *gin.Context) { c.JSON(http.StatusOK, []gin.H{}) })
	r.GET("/api/analytics/:name", func(c *gin.Context) {
		if c.Param("name") == "dashboard" {
			c.JSON(http.StatusOK, gin.H{"totalReviews": 1})
			return
		}
		c.JSON(http.StatusOK, []gin.H{})
	})
	r.POST("/api/users/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"token": "clerk-token",
			"user":  gin.H{"_id": "u1", "username": "clerk", "email": "clerk@hotel.com", "role": model.RoleSubUser},
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	log := zap.NewNop()
	kv := store.NewMemoryStore()
	client := api.NewClient(srv.URL+"/api/", 5*time.Second, log)
	backend := api.NewBackend(client)
	ctx := context.Background()
	feed := notify.NewFeed(ctx, kv, 50, log)
	poller := appsync.New(log, 64)
	t.Cleanup(poller.StopAll)

	seen := notify.NewSeenSet(ctx, kv, store.KeyNotifiedReviewIDs, log)

	return &harness{
		kv: kv,
		deps: Deps{
			Config: model.AppConfig{
				Polling: model.PollingConfig{ReviewIntervalSec: 60, DashboardIntervalMs: 60000, MailboxIntervalSec: 60},
			},
			Backend: backend,
			Session: auth.NewSession(kv, backend, client, log),
			Feed:    feed,
			Poller:  poller,
			Reviews: notify.NewReviewReconciler(backend.Reviews, seen, feed, log),
			Logger:  log,
		},
	}
}

func (h *harness) start(t *testing.T) Model {
	t.Helper()
	m := New(h.deps)
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// runCommand opens the palette and submits line, as typing ":line" would.
func runCommand(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m = update(t, m, keyPress(":"))
	return updateCmd(t, m, command.CommandMsg(line))
}

func signIn(t *testing.T, m Model, email, password string) Model {
	t.Helper()
	msg := m.signIn(email, password)()
	return update(t, m, msg)
}

func TestNew_WithoutSessionShowsLogin(t *testing.T) {
	h := newHarness(t)
	m := h.start(t)

	assert.Equal(t, ViewLogin, m.currentView)
	assert.Contains(t, m.View(), "Sign in")
}

func TestSignIn_MasterStartsSession(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	assert.Equal(t, ViewDashboard, m.currentView)
	assert.True(t, m.isMaster())
	assert.NotZero(t, m.dashboardJob)
	assert.Len(t, m.jobHandles, 1)

	var names []string
	for _, s := range h.deps.Poller.Statuses() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"reviews", "dashboard"}, names)
	assert.Contains(t, m.View(), "Master (Master)")
}

func TestSignIn_FailureStaysOnLogin(t *testing.T) {
	h := newHarness(t)
	m := h.start(t)

	m = update(t, m, loginResultMsg{err: errors.New("Invalid credentials")})
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Contains(t, m.View(), "Error: Invalid credentials")
}

func TestNew_RestoredSessionStartsOnDashboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.kv.Set(ctx, store.KeyToken, "clerk-token"))
	require.NoError(t, store.SetJSON(ctx, h.kv, store.KeyUser, model.User{ID: "u1", Username: "clerk", Role: model.RoleSubUser}))
	require.True(t, h.deps.Session.Restore(ctx))

	m := h.start(t)
	assert.Equal(t, ViewDashboard, m.currentView)

	m = update(t, m, sessionStartedMsg{})
	assert.Equal(t, ViewDashboard, m.currentView)
	assert.NotEmpty(t, m.jobHandles)
}

func TestStartSession_ExpiredTokenSignsOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, h.kv.Set(ctx, store.KeyToken, token))
	require.NoError(t, store.SetJSON(ctx, h.kv, store.KeyUser, model.User{ID: "u1", Username: "clerk", Role: model.RoleSubUser}))
	require.True(t, h.deps.Session.Restore(ctx))

	m := update(t, h.start(t), sessionStartedMsg{})
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Empty(t, m.jobHandles)
	_, ok := h.deps.Session.User()
	assert.False(t, ok)
	assert.ErrorIs(t, m.statusErr, errSessionExpired)
}

func TestTab_SkipsUsersForSubUser(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), "clerk@hotel.com", "pw")
	require.Equal(t, ViewDashboard, m.currentView)

	var visited []ViewState
	for i := 0; i < 4; i++ {
		m = update(t, m, keyPress("tab"))
		visited = append(visited, m.currentView)
	}
	assert.Equal(t, []ViewState{ViewReviews, ViewCalendar, ViewPromotions, ViewDashboard}, visited)
}

func TestTab_MasterReachesUsers(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	for i := 0; i < 4; i++ {
		m = update(t, m, keyPress("tab"))
	}
	assert.Equal(t, ViewUsers, m.currentView)
}

func TestSwitchView_DashboardPollOnlyWhileShown(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)
	require.NotZero(t, m.dashboardJob)

	m = update(t, m, keyPress("tab"))
	assert.Zero(t, m.dashboardJob)

	m, _ = runCommand(t, m, "dashboard")
	assert.Equal(t, ViewDashboard, m.currentView)
	assert.NotZero(t, m.dashboardJob)
}

func TestCommand_UsersDeniedForSubUser(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), "clerk@hotel.com", "pw")

	m, cmd := runCommand(t, m, "users")
	assert.Equal(t, ViewDashboard, m.currentView)
	require.NotNil(t, cmd)
	st, ok := cmd().(ui.StatusMsg)
	require.True(t, ok)
	assert.ErrorIs(t, st.Err, errMasterOnly)
}

func TestCommand_Unknown(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	_, cmd := runCommand(t, m, "frobnicate")
	require.NotNil(t, cmd)
	st := cmd().(ui.StatusMsg)
	assert.ErrorContains(t, st.Err, `unknown command "frobnicate"`)
}

func TestCommand_LogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	m, _ = runCommand(t, m, "logout")
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Empty(t, m.jobHandles)
	assert.Zero(t, m.dashboardJob)
	assert.Empty(t, h.deps.Poller.Statuses())

	_, ok := h.kv.Get(context.Background(), store.KeyToken)
	assert.False(t, ok)
}

func TestHeader_ShowsUnreadBadge(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	h.deps.Feed.Add(context.Background(), model.Notification{Key: "r9", Kind: model.KindReview, Message: "New review from Bob"})
	assert.Contains(t, m.View(), "[1 new]")

	m = update(t, m, keyPress("b"))
	assert.True(t, m.notifs.IsOpen())
	assert.Zero(t, h.deps.Feed.Unread())
	assert.NotContains(t, m.View(), "[1 new]")
	assert.Contains(t, m.View(), "New review from Bob")
}

func TestNotification_ActivateNavigatesToReviews(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)
	h.deps.Feed.Add(context.Background(), model.Notification{Key: "r9", Kind: model.KindReview, Message: "New review from Bob"})

	m = update(t, m, keyPress("b"))
	m, cmd := updateCmd(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	nav, ok := cmd().(notifications.NavigateMsg)
	require.True(t, ok)
	assert.Equal(t, notify.DestReviews, nav.Nav.To)
	assert.Zero(t, h.deps.Feed.Len())

	m = update(t, m, nav)
	assert.Equal(t, ViewReviews, m.currentView)
	assert.False(t, m.notifs.IsOpen())
}

func TestNotification_BirthdayFocusesCalendar(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	day := time.Date(2031, 3, 14, 0, 0, 0, 0, time.Local)
	m = update(t, m, notifications.NavigateMsg{Nav: notify.Navigation{To: notify.DestCalendar, Date: day}})
	assert.Equal(t, ViewCalendar, m.currentView)
	assert.True(t, m.calendar.Cursor().Equal(day))
}

func TestStatusMsg_ErrorShownInStatusBar(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	m = update(t, m, ui.StatusMsg{Err: errors.New("backend said no")})
	assert.Contains(t, m.View(), "Error: backend said no")

	m = update(t, m, keyPress("tab"))
	assert.NotContains(t, m.View(), "backend said no")
}

func TestResult_DashboardFailureShownInHeader(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	m = update(t, m, appsync.ResultMsg{Job: "dashboard", Err: errors.New("down")})
	assert.Contains(t, m.View(), "Summary unavailable")
}

func TestHelp_ToggleReturnsToPreviousView(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	m = update(t, m, keyPress("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	m = update(t, m, keyPress("esc"))
	assert.Equal(t, ViewDashboard, m.currentView)
}

func TestSettings_OpenAndCloseFromDashboard(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	m, _ = runCommand(t, m, "settings")
	assert.Equal(t, ViewSettings, m.currentView)
	assert.Zero(t, m.dashboardJob)
	assert.Contains(t, m.View(), "Feedback inbox")

	m, cmd := updateCmd(t, m, keyPress("esc"))
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Equal(t, ViewDashboard, m.currentView)
	assert.NotZero(t, m.dashboardJob)
}

func TestSettings_SavedConfigReplacesDeps(t *testing.T) {
	h := newHarness(t)
	m := signIn(t, h.start(t), auth.MasterEmail, auth.MasterPassword)

	cfg := h.deps.Config
	cfg.API.BaseURL = "http://desk.local/api"
	m = update(t, m, settings.SavedMsg{Config: cfg})
	assert.Equal(t, "http://desk.local/api", m.deps.Config.API.BaseURL)
	assert.Contains(t, m.View(), "Settings saved")
}
