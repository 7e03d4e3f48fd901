// Package gateway describes the hosted backend the application delegates to:
// authentication, record storage, object storage and realtime change feeds.
package gateway

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

// Identity is an authenticated principal as issued by the auth service.
type Identity struct {
	ID           string         `json:"id" validate:"required"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// DisplayName returns user_metadata.full_name or user_metadata.name.
func (i Identity) DisplayName() *string {
	for _, k := range []string{"full_name", "name"} {
		if v, ok := i.UserMetadata[k].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}

// Session is the token pair returned by sign-in, sign-up and refresh.
// AccessToken is empty when sign-up still awaits email confirmation.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	User         *Identity `json:"user" validate:"required"`
}

// AuthEventKind names an auth-state transition.
type AuthEventKind string

const (
	SignedIn       AuthEventKind = "SIGNED_IN"
	SignedOut      AuthEventKind = "SIGNED_OUT"
	TokenRefreshed AuthEventKind = "TOKEN_REFRESHED"
)

// AuthEvent is emitted whenever the current session changes.
type AuthEvent struct {
	Event   AuthEventKind
	Session *Session
}

// Auth is the hosted authentication service.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
}

// Records is the relational storage for summaries and user profiles.
// The caller's access token, if any, travels in ctx (see WithAccessToken).
type Records interface {
	ListSummaries(ctx context.Context, f model.SummaryFilters) ([]model.SummaryWithUser, int64, error)
	GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error)
	InsertSummary(ctx context.Context, s *model.Summary) (*model.Summary, error)
	// UpdateSummary applies updates to the row matching both id and ownerID.
	UpdateSummary(ctx context.Context, id, ownerID string, updates map[string]any) (*model.Summary, error)
	DeleteSummary(ctx context.Context, id, ownerID string) error

	ListUsers(ctx context.Context, f model.UserFilters) ([]model.User, int64, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, u *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, id string, updates map[string]any) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Objects is the file storage bucket.
type Objects interface {
	// Upload stores body at path and returns the stored path.
	Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error)
	PublicURL(path string) string
	// PathFromURL reverses PublicURL. ok is false for URLs outside the bucket.
	PathFromURL(rawURL string) (path string, ok bool)
	Remove(ctx context.Context, paths []string) error
}

// EventType is the kind of row change pushed by the realtime feed.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one row change.
type ChangeEvent struct {
	Type  EventType
	Table string
	New   json.RawMessage
	Old   json.RawMessage
}

// Subscription is a live change feed. Events is closed once the feed ends.
type Subscription interface {
	Events() <-chan ChangeEvent
	Unsubscribe() error
}

// Realtime opens change feeds on a table, filtered PostgREST style (id=eq.42).
type Realtime interface {
	Subscribe(ctx context.Context, table, filter string) (Subscription, error)
}
