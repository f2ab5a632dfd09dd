package records

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhle/guest-review/internal/keys"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/ui"
	"github.com/nhle/guest-review/internal/ui/detail"
	"github.com/nhle/guest-review/internal/viewmodel"
)

type MockDeleter struct {
	mock.Mock
}

func (m *MockDeleter) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var fixtures = []model.Review{
	{ID: "1", GuestName: "Ann Lee", Department: model.DepartmentRestaurant, Rating: 5, Comment: "Superb dinner"},
	{ID: "2", GuestName: "Bob", Department: model.DepartmentBanquet, Rating: 2, Comment: "Cold hall"},
	{ID: "3", GuestName: "Cleo", Department: model.DepartmentRestaurant, Rating: 3, Comment: "ok"},
}

func newScreen(t *testing.T, d viewmodel.Deleter) Model[model.Review] {
	t.Helper()
	cfg := Config[model.Review]{
		Title:          "Reviews",
		Noun:           "review",
		Spec:           viewmodel.ReviewSpec(),
		Categories:     []string{string(model.DepartmentRestaurant), string(model.DepartmentBanquet)},
		CategoryLabel:  "department",
		Secondaries:    []string{"5", "4", "3", "2", "1"},
		SecondaryLabel: "rating",
		Gate:           viewmodel.MasterOnly(),
		CanAdd:         true,
		ID:             func(r model.Review) string { return r.ID },
		Label:          func(r model.Review) string { return r.GuestName },
		Row:            func(r model.Review) string { return r.GuestName },
		Detail: func(r model.Review) detail.Document {
			return detail.Document{Title: r.GuestName, Sections: []detail.Section{{Body: r.Comment}}}
		},
		Load: func(context.Context) ([]model.Review, error) {
			return fixtures[1:], nil
		},
		Deleter: d,
	}
	m := New(cfg, keys.DefaultKeyMap(), 100, 30)
	m, _ = m.Update(LoadedMsg[model.Review]{Items: fixtures})
	return m
}

func press(m Model[model.Review], ks ...string) (Model[model.Review], tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range ks {
		var msg tea.KeyMsg
		switch k {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, cmd = m.Update(msg)
	}
	return m, cmd
}

func names(rs []model.Review) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.GuestName
	}
	return out
}

func TestLoaded_ShowsEverything(t *testing.T) {
	m := newScreen(t, nil)
	assert.Len(t, m.Visible(), 3)
	assert.True(t, m.Filter().IsZero())
	assert.Contains(t, m.View(), "3/3")
}

func TestLoaded_ErrorReportsStatus(t *testing.T) {
	m := New(Config[model.Review]{Noun: "review", Spec: viewmodel.ReviewSpec()}, keys.DefaultKeyMap(), 80, 20)
	_, cmd := m.Update(LoadedMsg[model.Review]{Err: errors.New("boom")})
	require.NotNil(t, cmd)
	st, ok := cmd().(ui.StatusMsg)
	require.True(t, ok)
	assert.ErrorContains(t, st.Err, "load reviews")
}

func TestCycleKeys_FilterByCategoryAndRating(t *testing.T) {
	m := newScreen(t, nil)

	m, _ = press(m, "1")
	assert.Equal(t, string(model.DepartmentRestaurant), m.Filter().Category)
	assert.Equal(t, []string{"Ann Lee", "Cleo"}, names(m.Visible()))

	m, _ = press(m, "2")
	assert.Equal(t, "5", m.Filter().Secondary)
	assert.Equal(t, []string{"Ann Lee"}, names(m.Visible()))

	m, _ = press(m, "esc")
	assert.True(t, m.Filter().IsZero())
	assert.Len(t, m.Visible(), 3)
}

func TestSearch_FiltersWhileTyping(t *testing.T) {
	m := newScreen(t, nil)

	m, _ = press(m, "/")
	assert.True(t, m.Capturing())

	m, _ = press(m, "c", "o", "l", "d")
	assert.Equal(t, "cold", m.Filter().Search)
	assert.Equal(t, []string{"Bob"}, names(m.Visible()))

	m, _ = press(m, "enter")
	assert.False(t, m.Capturing())
	assert.Equal(t, "cold", m.Filter().Search)

	m, _ = press(m, "/", "esc")
	assert.False(t, m.Capturing())
	assert.Empty(t, m.Filter().Search)
	assert.Len(t, m.Visible(), 3)
}

func TestEditAndDelete_HiddenFromSubUsers(t *testing.T) {
	d := new(MockDeleter)
	m := newScreen(t, d)
	m.SetRole(model.RoleSubUser)

	_, cmd := press(m, "e")
	assert.Nil(t, cmd)

	m, _ = press(m, "d")
	assert.False(t, m.Capturing())
	d.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestEdit_EmitsSelectedRecord(t *testing.T) {
	m := newScreen(t, nil)
	m.SetRole(model.RoleMaster)

	_, cmd := press(m, "e")
	require.NotNil(t, cmd)
	msg, ok := cmd().(EditMsg[model.Review])
	require.True(t, ok)
	assert.Equal(t, "1", msg.Item.ID)
}

func TestAdd_AllowedForEveryRole(t *testing.T) {
	m := newScreen(t, nil)
	m.SetRole(model.RoleSubUser)

	_, cmd := press(m, "n")
	require.NotNil(t, cmd)
	assert.IsType(t, AddMsg[model.Review]{}, cmd())
}

func TestDelete_ConfirmDeletesAndRefetches(t *testing.T) {
	d := new(MockDeleter)
	d.On("Delete", mock.Anything, "1").Return(nil).Once()
	m := newScreen(t, d)
	m.SetRole(model.RoleMaster)

	m, _ = press(m, "d")
	assert.True(t, m.Capturing())
	assert.Contains(t, m.View(), `Delete review "Ann Lee"?`)

	m, cmd := press(m, "y")
	require.NotNil(t, cmd)
	assert.False(t, m.Capturing())

	deleted, ok := cmd().(DeletedMsg[model.Review])
	require.True(t, ok)
	assert.NoError(t, deleted.Err)
	assert.Equal(t, "Ann Lee", deleted.Label)
	d.AssertExpectations(t)

	m, cmd = m.Update(deleted)
	assert.Equal(t, []string{"Bob", "Cleo"}, names(m.Visible()))
	require.NotNil(t, cmd)
}

func TestDelete_FailureStillRefetches(t *testing.T) {
	d := new(MockDeleter)
	d.On("Delete", mock.Anything, "1").Return(errors.New("Review not found")).Once()
	m := newScreen(t, d)
	m.SetRole(model.RoleMaster)

	m, _ = press(m, "d")
	m, cmd := press(m, "y")
	deleted := cmd().(DeletedMsg[model.Review])
	assert.Error(t, deleted.Err)
	assert.NoError(t, deleted.LoadErr)
	assert.Len(t, deleted.Items, 2)

	m, _ = m.Update(deleted)
	assert.Len(t, m.Visible(), 2)
}

func TestDelete_CancelLeavesRecord(t *testing.T) {
	d := new(MockDeleter)
	m := newScreen(t, d)
	m.SetRole(model.RoleMaster)

	m, _ = press(m, "d")
	m, cmd := press(m, "n")
	assert.Nil(t, cmd)
	assert.False(t, m.Capturing())
	assert.Len(t, m.Visible(), 3)
	d.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSelect_TogglesDetail(t *testing.T) {
	m := newScreen(t, nil)

	m, _ = press(m, "enter")
	assert.Contains(t, m.View(), "Superb dinner")

	m, _ = press(m, "esc")
	assert.NotContains(t, m.View(), "Superb dinner")
}

func TestDelete_SecondConfirmKeyIsIgnored(t *testing.T) {
	d := new(MockDeleter)
	d.On("Delete", mock.Anything, "1").Return(nil).Once()
	m := newScreen(t, d)
	m.SetRole(model.RoleMaster)

	m, _ = press(m, "d")
	m, first := press(m, "y")
	require.NotNil(t, first)
	assert.False(t, m.Capturing())
	assert.NotContains(t, m.View(), `Delete review "Ann Lee"?`)

	m, second := press(m, "y")
	if second != nil {
		_, again := second().(DeletedMsg[model.Review])
		assert.False(t, again)
	}
	_, isDelete := first().(DeletedMsg[model.Review])
	assert.True(t, isDelete)
	d.AssertNumberOfCalls(t, "Delete", 1)
	assert.False(t, m.Capturing())
}

func TestDelete_OpenGateLetsSubUsersDelete(t *testing.T) {
	d := new(MockDeleter)
	d.On("Delete", mock.Anything, "p1").Return(nil).Once()
	promos := []model.Promotion{{ID: "p1", Title: "Spring stay"}, {ID: "p2", Title: "Spa week"}}
	cfg := Config[model.Promotion]{
		Title:   "Promotions",
		Noun:    "promotion",
		Spec:    viewmodel.PromotionSpec(time.Now),
		Gate:    viewmodel.Open(),
		ID:      func(p model.Promotion) string { return p.ID },
		Label:   func(p model.Promotion) string { return p.Title },
		Row:     func(p model.Promotion) string { return p.Title },
		Load:    func(context.Context) ([]model.Promotion, error) { return promos[1:], nil },
		Deleter: d,
	}
	m := New(cfg, keys.DefaultKeyMap(), 100, 30)
	m, _ = m.Update(LoadedMsg[model.Promotion]{Items: promos})
	m.SetRole(model.RoleSubUser)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.True(t, m.Capturing())
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)

	deleted, ok := cmd().(DeletedMsg[model.Promotion])
	require.True(t, ok)
	assert.NoError(t, deleted.Err)
	m, _ = m.Update(deleted)
	assert.Len(t, m.Visible(), 1)
	d.AssertExpectations(t)
}
