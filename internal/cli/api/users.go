package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

// UpsertUserRequest is the profile upsert body.
type UpsertUserRequest struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
	Grade    *string `json:"grade,omitempty"`
}

type userEnvelope struct {
	User *model.User `json:"user"`
}

func (c *Client) ListUsers(ctx context.Context, f model.UserFilters) (*model.UserPage, error) {
	q := pageQuery(f.Page, f.Limit)
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Grade != "" {
		q.Set("grade", f.Grade)
	}
	var out model.UserPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser returns nil without error when the profile does not exist.
func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	var out userEnvelope
	err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, nil, &out)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) UpsertUser(ctx context.Context, req UpsertUserRequest) (*model.User, error) {
	var out userEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/users", nil, req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, p model.UserPatch) (*model.User, error) {
	var out userEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil, nil, nil)
}
