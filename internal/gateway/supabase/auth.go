package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
)

// Auth talks to GoTrue under /auth/v1.
type Auth struct {
	c *Client
}

var _ gateway.Auth = (*Auth)(nil)

// NewAuth returns the auth service of c.
func NewAuth(c *Client) *Auth {
	return &Auth{c: c}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a new identity. With email confirmation enabled GoTrue
// answers with the bare user, which yields a session without tokens.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*gateway.Session, error) {
	var raw json.RawMessage
	_, err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		json:   credentials{Email: email, Password: password},
		token:  a.c.apiKey,
	}, &raw)
	if err != nil {
		return nil, err
	}
	var s gateway.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
	}
	if s.AccessToken == "" {
		var id gateway.Identity
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
		}
		s.User = &id
	}
	if err := gateway.Validate(&s); err != nil {
		return nil, err
	}
	if err := gateway.Validate(s.User); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignIn exchanges email and password for a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	return a.token(ctx, "password", credentials{Email: email, Password: password})
}

// Refresh exchanges a refresh token for a new session.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*gateway.Session, error) {
	return a.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (a *Auth) token(ctx context.Context, grant string, body any) (*gateway.Session, error) {
	var s gateway.Session
	_, err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grant}},
		json:   body,
		token:  a.c.apiKey,
	}, &s)
	if err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", gateway.ErrMalformed)
	}
	if err := gateway.Validate(&s); err != nil {
		return nil, err
	}
	if err := gateway.Validate(s.User); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignOut revokes the session behind accessToken.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
	}, nil)
	return err
}

// GetUser resolves the identity behind accessToken.
func (a *Auth) GetUser(ctx context.Context, accessToken string) (*gateway.Identity, error) {
	var id gateway.Identity
	_, err := a.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  accessToken,
	}, &id)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(&id); err != nil {
		return nil, err
	}
	return &id, nil
}
