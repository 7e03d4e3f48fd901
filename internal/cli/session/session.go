// Package session is the CLI's application-scoped auth state: the current
// token pair, its persistence between runs, and auth-change notifications.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/repo"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
)

// AuthAPI is the part of the route client the session drives.
type AuthAPI interface {
	SignUp(ctx context.Context, req api.SignUpRequest) (*gateway.Session, error)
	SignIn(ctx context.Context, email, password string) (*gateway.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*gateway.Session, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*gateway.Identity, error)
}

// Listener receives auth-state transitions.
type Listener func(gateway.AuthEvent)

// ErrNotSignedIn is returned by operations that need a session.
var ErrNotSignedIn = errors.New("not signed in")

// Session holds the current auth state. It implements api.TokenSource.
type Session struct {
	api    AuthAPI
	store  repo.SessionStore
	logins repo.UserContextStore
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	current *gateway.Session

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

var _ api.TokenSource = (*Session)(nil)

// New creates an empty session. logins may be nil.
func New(a AuthAPI, store repo.SessionStore, logins repo.UserContextStore, logger *zap.SugaredLogger) *Session {
	return &Session{
		api:       a,
		store:     store,
		logins:    logins,
		logger:    logger,
		listeners: map[int]Listener{},
	}
}

// AccessToken returns the current token, or "" when signed out.
func (s *Session) AccessToken() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Current returns a copy of the session, nil when signed out.
func (s *Session) Current() *gateway.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Identity returns the signed-in principal, nil when signed out.
func (s *Session) Identity() *gateway.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current.User
}

// Init restores the stored session. An expired token is refreshed once; a
// session the server no longer accepts is dropped. No event is emitted.
func (s *Session) Init(ctx context.Context) error {
	stored, err := s.store.Load()
	if err != nil {
		s.logger.Debugw("no stored session", "error", err)
		return nil
	}
	s.set(stored)

	id, err := s.api.CurrentUser(ctx)
	if err != nil {
		// offline: keep the stored session and let later calls fail loudly
		s.logger.Warnw("session check failed", "error", err)
		return nil
	}
	if id != nil {
		s.mu.Lock()
		s.current.User = id
		s.mu.Unlock()
		return nil
	}

	if stored.RefreshToken != "" {
		if sess, err := s.api.Refresh(ctx, stored.RefreshToken); err == nil && sess != nil && sess.AccessToken != "" {
			s.adopt(sess)
			return nil
		}
	}
	s.logger.Infow("stored session expired")
	s.set(nil)
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SignIn authenticates and emits SIGNED_IN.
func (s *Session) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	sess, err := s.api.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, errors.New("sign-in returned no session")
	}
	s.adopt(sess)
	s.emit(gateway.SignedIn, sess)
	return sess, nil
}

// SignUp registers an account. When the server hands back a usable session
// (no email confirmation pending) the user is signed in right away.
func (s *Session) SignUp(ctx context.Context, req api.SignUpRequest) (*gateway.Session, error) {
	sess, err := s.api.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	if sess != nil && sess.AccessToken != "" {
		s.adopt(sess)
		s.emit(gateway.SignedIn, sess)
	}
	return sess, nil
}

// Refresh renews the token pair and emits TOKEN_REFRESHED.
func (s *Session) Refresh(ctx context.Context) error {
	cur := s.Current()
	if cur == nil {
		return ErrNotSignedIn
	}
	if cur.RefreshToken == "" {
		return errors.New("session has no refresh token")
	}
	sess, err := s.api.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		return err
	}
	if sess == nil || sess.AccessToken == "" {
		return errors.New("refresh returned no session")
	}
	s.adopt(sess)
	s.emit(gateway.TokenRefreshed, sess)
	return nil
}

// SignOut revokes the token on the server (best effort), forgets it locally
// and emits SIGNED_OUT.
func (s *Session) SignOut(ctx context.Context) error {
	if s.AccessToken() == "" {
		return ErrNotSignedIn
	}
	if err := s.api.SignOut(ctx); err != nil {
		s.logger.Warnw("server sign-out failed", "error", err)
	}
	s.set(nil)
	s.emit(gateway.SignedOut, nil)
	return s.store.Clear()
}

// OnAuthChange registers l and returns a function that removes it.
func (s *Session) OnAuthChange(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

// Close drops every listener.
func (s *Session) Close() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = map[int]Listener{}
}

func (s *Session) set(sess *gateway.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
}

// adopt makes sess current and persists it.
func (s *Session) adopt(sess *gateway.Session) {
	s.set(sess)
	if err := s.store.Save(sess); err != nil {
		s.logger.Warnw("persist session failed", "error", err)
	}
	if s.logins != nil && sess.User != nil {
		login := sess.User.Email
		if login == "" {
			login = sess.User.ID
		}
		if err := s.logins.SaveLogin(login); err != nil {
			s.logger.Warnw("persist login failed", "error", err)
		}
	}
}

func (s *Session) emit(kind gateway.AuthEventKind, sess *gateway.Session) {
	s.lmu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.Unlock()

	ev := gateway.AuthEvent{Event: kind, Session: sess}
	for _, l := range ls {
		l(ev)
	}
}
