package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/store"
)

// Built-in master account, accepted without contacting the backend.
const (
	MasterEmail    = "master@review.com"
	MasterPassword = "admin123"
	MasterToken    = "master-token"
)

// MasterUser is the user record of the built-in master account.
var MasterUser = model.User{
	ID:       "master-user",
	Username: "Master",
	Email:    MasterEmail,
	Role:     model.RoleMaster,
}

// ErrLoginFailed is returned when the backend rejects the credentials
// without a message of its own.
var ErrLoginFailed = errors.New("login failed")

// Authenticator exchanges credentials for a token; *api.Backend satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
}

// TokenHolder receives the session token; *api.Client satisfies it.
type TokenHolder interface {
	SetToken(token string)
}

// Session holds the signed-in user and keeps the token and user record
// in the KV store so a restart resumes the session.
type Session struct {
	kv     store.KV
	authn  Authenticator
	holder TokenHolder
	log    *zap.Logger

	mu    gosync.RWMutex
	token string
	user  *model.User
}

func NewSession(kv store.KV, authn Authenticator, holder TokenHolder, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{kv: kv, authn: authn, holder: holder, log: log.Named("auth")}
}

// Restore reloads a persisted session and attaches its token to the
// client. It reports whether a user is signed in. The token is not
// verified; an invalid one surfaces as 401s from the backend.
func (s *Session) Restore(ctx context.Context) bool {
	token, ok := s.kv.Get(ctx, store.KeyToken)
	if !ok || token == "" {
		return false
	}

	var user model.User
	if !store.GetJSON(ctx, s.kv, store.KeyUser, &user) {
		s.log.Warn("token without user record, ignoring stored session")
		return false
	}

	s.set(token, &user)
	s.log.Info("session restored", zap.String("user", user.Username))
	return true
}

// Login signs in with the master account or through /users/login and
// persists the resulting session.
func (s *Session) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)

	var token string
	var user model.User
	if email == MasterEmail && password == MasterPassword {
		token, user = MasterToken, MasterUser
	} else {
		resp, err := s.authn.Login(ctx, email, password)
		if err != nil {
			s.log.Warn("login rejected", zap.String("email", email), zap.Error(err))
			var srvErr *api.ServerError
			if errors.As(err, &srvErr) && srvErr.Message != "" {
				return nil, fmt.Errorf("%w: %s", ErrLoginFailed, srvErr.Message)
			}
			return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
		}
		if resp.Token == "" {
			return nil, fmt.Errorf("%w: empty token", ErrLoginFailed)
		}
		token, user = resp.Token, resp.User
	}

	if err := s.kv.Set(ctx, store.KeyToken, token); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	if err := store.SetJSON(ctx, s.kv, store.KeyUser, user); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.set(token, &user)
	s.log.Info("signed in", zap.String("user", user.Username), zap.String("role", user.Role))
	return &user, nil
}

// Logout forgets the session locally and detaches the token.
func (s *Session) Logout(ctx context.Context) error {
	s.set("", nil)

	var errs []error
	if err := s.kv.Delete(ctx, store.KeyToken); err != nil {
		errs = append(errs, err)
	}
	if err := s.kv.Delete(ctx, store.KeyUser); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Session) set(token string, user *model.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	if s.holder != nil {
		s.holder.SetToken(token)
	}
}

// User returns the signed-in user.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Role returns the signed-in user's role, or "" when signed out.
func (s *Session) Role() string {
	u, _ := s.User()
	return u.Role
}

// Token returns the session token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the exp claim of a JWT session token without
// verifying its signature. Non-JWT tokens and tokens without exp yield
// the zero time.
func (s *Session) ExpiresAt() time.Time {
	token := s.Token()
	if token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Expired reports whether the token carries an exp claim before now.
func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && exp.Before(now)
}
