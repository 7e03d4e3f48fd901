package api

import (
	"context"
	"net/http"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
)

// SignUpRequest is the sign-up body.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Grade    string `json:"grade"`
}

type sessionEnvelope struct {
	Message string           `json:"message"`
	Data    *gateway.Session `json:"data"`
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*gateway.Session, error) {
	var out sessionEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	var out sessionEnvelope
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signin", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Refresh trades a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*gateway.Session, error) {
	var out sessionEnvelope
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/signout", nil, nil, nil)
}

// CurrentUser returns the identity behind the current token, or nil.
func (c *Client) CurrentUser(ctx context.Context) (*gateway.Identity, error) {
	var out struct {
		User *gateway.Identity `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/user", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
