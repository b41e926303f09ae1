// Package session holds the authenticated identity explicitly instead of in
// ambient globals. A Session is passed by reference into reservation and
// lookup operations.
package session

import (
	"context"
	"sync"

	apperrors "pierre/internal/errors"
	"pierre/internal/models"
)

type Session struct {
	mu    sync.RWMutex
	user  *models.User
	token string
}

// New returns an anonymous session.
func New() *Session {
	return &Session{}
}

// Authenticated returns a session already signed in as user.
func Authenticated(user models.User, token string) *Session {
	s := New()
	s.SignIn(user, token)
	return s
}

func (s *Session) SignIn(user models.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
	s.token = token
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
}

// CurrentUser is nil-safe so an absent session reads as anonymous.
func (s *Session) CurrentUser() (models.User, bool) {
	if s == nil {
		return models.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// RequireUser is the login-required gate.
func (s *Session) RequireUser() (models.User, error) {
	u, ok := s.CurrentUser()
	if !ok {
		return models.User{}, apperrors.New(apperrors.KindAuthRequired, "please login to reserve a table")
	}
	return u, nil
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx or an anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
