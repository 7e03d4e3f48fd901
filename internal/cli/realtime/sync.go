// Package realtime keeps the signed-in user's profile in step with the
// backend: it resolves the profile on auth changes (creating it when
// missing) and applies pushed row changes from the users change feed.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/session"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

// Phase is where the synchronizer is in resolving the current user.
type Phase string

const (
	Unauthenticated Phase = "unauthenticated"
	Resolving       Phase = "resolving"
	FetchOrCreate   Phase = "fetch_or_create"
	Synced          Phase = "synced"
	Failed          Phase = "error"
)

const usersTable = "users"

// State is a snapshot for observers. User is nil in every phase but Synced,
// and may be nil in Synced after a pushed DELETE.
type State struct {
	Phase      Phase
	IdentityID string
	User       *model.User
	Err        string
}

// Loading reports whether a resolution is in progress.
func (s State) Loading() bool {
	return s.Phase == Resolving || s.Phase == FetchOrCreate
}

// UserSource reads and creates profiles.
type UserSource interface {
	// GetUser returns nil without error when the profile does not exist.
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, req api.UpsertUserRequest) (*model.User, error)
}

// AuthSource is the session the synchronizer follows.
type AuthSource interface {
	Identity() *gateway.Identity
	OnAuthChange(l session.Listener) func()
}

var errNoUser = errors.New("Failed to fetch or create database user")

// Synchronizer follows one AuthSource. Resolution runs in the goroutine that
// delivers the auth event; pushed changes are applied by one goroutine per
// subscription, in receipt order.
type Synchronizer struct {
	auth   AuthSource
	users  UserSource
	feed   gateway.Realtime
	logger *zap.SugaredLogger

	mu       sync.Mutex
	ctx      context.Context
	state    State
	identity *gateway.Identity
	live     *liveSub
	// gen moves whenever the tracked identity changes or resolution restarts;
	// work tagged with an older gen is discarded.
	gen     uint64
	updates chan State
	closed  bool

	stopAuth  func()
	closeOnce sync.Once
}

type liveSub struct {
	sub  gateway.Subscription
	once sync.Once
}

// stop unsubscribes at most once. A nil sub is a no-op.
func (l *liveSub) stop(logger *zap.SugaredLogger) {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if err := l.sub.Unsubscribe(); err != nil {
			logger.Warnw("unsubscribe failed", "error", err)
		}
	})
}

func New(auth AuthSource, users UserSource, feed gateway.Realtime, logger *zap.SugaredLogger) *Synchronizer {
	return &Synchronizer{
		auth:    auth,
		users:   users,
		feed:    feed,
		logger:  logger,
		ctx:     context.Background(),
		state:   State{Phase: Unauthenticated},
		updates: make(chan State, 16),
	}
}

// Start begins following auth changes and resolves the current identity, if
// any. ctx bounds every network call made on behalf of the synchronizer.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.stopAuth = s.auth.OnAuthChange(s.onAuth)
	if id := s.auth.Identity(); id != nil {
		s.resolve(id)
	}
}

// State returns the current snapshot.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Updates delivers snapshots as they change. When the reader falls behind
// the oldest snapshot is dropped. The channel is closed by Close.
func (s *Synchronizer) Updates() <-chan State {
	return s.updates
}

// Refetch re-runs resolution for the current identity, leaving Failed.
func (s *Synchronizer) Refetch() {
	s.mu.Lock()
	id := s.identity
	s.mu.Unlock()
	if id != nil {
		s.resolve(id)
	}
}

// Close stops following auth and tears down the subscription.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		if s.stopAuth != nil {
			s.stopAuth()
		}
		s.mu.Lock()
		old := s.detachLocked()
		s.gen++
		s.closed = true
		close(s.updates)
		s.mu.Unlock()
		old.stop(s.logger)
	})
}

func (s *Synchronizer) onAuth(ev gateway.AuthEvent) {
	switch ev.Event {
	case gateway.SignedIn:
		if ev.Session != nil && ev.Session.User != nil {
			s.resolve(ev.Session.User)
		}
	case gateway.TokenRefreshed:
		if ev.Session == nil || ev.Session.User == nil {
			return
		}
		s.mu.Lock()
		same := s.identity != nil && s.identity.ID == ev.Session.User.ID
		s.mu.Unlock()
		if !same {
			s.resolve(ev.Session.User)
		}
	case gateway.SignedOut:
		s.mu.Lock()
		old := s.detachLocked()
		s.gen++
		s.identity = nil
		s.setLocked(State{Phase: Unauthenticated})
		s.mu.Unlock()
		old.stop(s.logger)
	}
}

// resolve fetches the profile for id, creating it when missing, then opens
// the change feed.
func (s *Synchronizer) resolve(id *gateway.Identity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	old := s.detachLocked()
	s.gen++
	gen := s.gen
	ctx := s.ctx
	s.identity = id
	s.setLocked(State{Phase: Resolving, IdentityID: id.ID})
	s.mu.Unlock()
	old.stop(s.logger)

	user, err := s.users.GetUser(ctx, id.ID)
	if err == nil && user == nil {
		if !s.advance(gen, State{Phase: FetchOrCreate, IdentityID: id.ID}) {
			return
		}
		user, err = s.users.UpsertUser(ctx, api.UpsertUserRequest{
			ID:       id.ID,
			Email:    id.Email,
			FullName: id.DisplayName(),
		})
	}
	if err == nil && user == nil {
		err = errNoUser
	}
	if err != nil {
		s.logger.Warnw("resolve user failed", "id", id.ID, "error", err)
		s.advance(gen, State{Phase: Failed, IdentityID: id.ID, Err: err.Error()})
		return
	}
	if !s.advance(gen, State{Phase: Synced, IdentityID: id.ID, User: user}) {
		return
	}

	sub, err := s.feed.Subscribe(ctx, usersTable, "id=eq."+id.ID)
	if err != nil {
		s.logger.Warnw("subscribe to user changes failed", "id", id.ID, "error", err)
		return
	}
	live := &liveSub{sub: sub}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		live.stop(s.logger)
		return
	}
	s.live = live
	s.mu.Unlock()

	go s.consume(gen, live)
}

// advance publishes st if gen is still current.
func (s *Synchronizer) advance(gen uint64, st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.setLocked(st)
	return true
}

func (s *Synchronizer) consume(gen uint64, live *liveSub) {
	for ev := range live.sub.Events() {
		if !s.apply(gen, ev) {
			return
		}
	}
	s.logger.Debugw("user change feed ended")
}

// apply handles one pushed change; false means the subscription is stale.
func (s *Synchronizer) apply(gen uint64, ev gateway.ChangeEvent) bool {
	var next *model.User
	switch ev.Type {
	case gateway.EventInsert, gateway.EventUpdate:
		var u model.User
		if err := json.Unmarshal(ev.New, &u); err != nil {
			s.logger.Warnw("undecodable user change", "type", ev.Type, "error", err)
			return true
		}
		next = &u
	case gateway.EventDelete:
	default:
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	st := s.state
	st.Phase = Synced
	st.Err = ""
	st.User = next
	s.setLocked(st)
	return true
}

// detachLocked hands back the live subscription for the caller to stop
// once the lock is released.
func (s *Synchronizer) detachLocked() *liveSub {
	l := s.live
	s.live = nil
	return l
}

func (s *Synchronizer) setLocked(st State) {
	s.state = st
	if s.closed {
		return
	}
	select {
	case s.updates <- st:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- st
	}
}
