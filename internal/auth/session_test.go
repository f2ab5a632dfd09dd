package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/store"
)

// MockAuthenticator is a mock type for Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.LoginResponse), args.Error(1)
}

type recordingHolder struct {
	token string
}

func (h *recordingHolder) SetToken(token string) { h.token = token }

func TestLogin_MasterBypass(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	authn := new(MockAuthenticator)
	holder := &recordingHolder{}
	s := NewSession(kv, authn, holder, nil)

	user, err := s.Login(ctx, "master@review.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "Master", user.Username)
	assert.Equal(t, model.RoleMaster, s.Role())
	assert.Equal(t, "master-token", holder.token)

	token, ok := kv.Get(ctx, store.KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "master-token", token)
	authn.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_BackendAndRestore(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	authn := new(MockAuthenticator)
	authn.On("Login", ctx, "clerk@hotel.com", "pw").Return(&api.LoginResponse{
		Token: "tok",
		User:  model.User{ID: "u1", Username: "clerk", Role: model.RoleSubUser},
	}, nil)

	_, err := NewSession(kv, authn, nil, nil).Login(ctx, "clerk@hotel.com", "pw")
	require.NoError(t, err)

	holder := &recordingHolder{}
	restored := NewSession(kv, authn, holder, nil)
	require.True(t, restored.Restore(ctx))
	u, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, "clerk", u.Username)
	assert.Equal(t, "tok", holder.token)
}

func TestLogin_BackendRejects(t *testing.T) {
	ctx := context.Background()
	authn := new(MockAuthenticator)
	authn.On("Login", ctx, "x@hotel.com", "bad").Return(nil, &api.ServerError{Status: 401, Message: "Invalid credentials"})

	s := NewSession(store.NewMemoryStore(), authn, nil, nil)
	_, err := s.Login(ctx, "x@hotel.com", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Contains(t, err.Error(), "Invalid credentials")

	_, ok := s.User()
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	holder := &recordingHolder{}
	s := NewSession(kv, nil, holder, nil)
	_, err := s.Login(ctx, MasterEmail, MasterPassword)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))
	assert.Empty(t, holder.token)
	_, ok := kv.Get(ctx, store.KeyUser)
	assert.False(t, ok)
	assert.False(t, NewSession(kv, nil, nil, nil).Restore(ctx))
}

func TestExpiresAt(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	authn := new(MockAuthenticator)
	authn.On("Login", ctx, "a@hotel.com", "pw").Return(&api.LoginResponse{Token: signed, User: model.User{Username: "a"}}, nil)

	s := NewSession(kv, authn, nil, nil)
	_, err = s.Login(ctx, "a@hotel.com", "pw")
	require.NoError(t, err)

	assert.True(t, s.ExpiresAt().Equal(exp))
	assert.True(t, s.Expired(time.Now()))

	_, err = s.Login(ctx, MasterEmail, MasterPassword)
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt().IsZero())
	assert.False(t, s.Expired(time.Now()))
}
