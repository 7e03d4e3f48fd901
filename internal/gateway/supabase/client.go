// Package supabase implements the gateway interfaces against a hosted
// Supabase project: GoTrue, PostgREST, Storage and Realtime.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"go.uber.org/zap"
)

// Client is the shared HTTP plumbing for the Supabase services.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewClient creates a client for the project at baseURL using the anon key.
func NewClient(baseURL, apiKey string, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// request describes one call.
type request struct {
	method  string
	path    string
	query   url.Values
	body    io.Reader
	json    any
	headers map[string]string
	token   string
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	body := r.body
	if r.json != nil {
		b, err := json.Marshal(r.json)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	token := r.token
	if token == "" {
		if t, ok := gateway.AccessToken(ctx); ok {
			token = t
		} else {
			token = c.apiKey
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if r.json != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do performs the call and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) (*http.Response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode >= 300 {
		gerr := decodeError(resp.StatusCode, body)
		c.logger.Debugw("gateway error", "method", r.method, "path", r.path, "status", resp.StatusCode, "code", gerr.Code)
		return resp, gerr
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp, fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
		}
	}
	return resp, nil
}

// errorBody covers the error shapes of GoTrue, PostgREST and Storage.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(status int, body []byte) *gateway.Error {
	gerr := &gateway.Error{Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		gerr.Message = strings.TrimSpace(string(body))
		if gerr.Message == "" {
			gerr.Message = http.StatusText(status)
		}
		return gerr
	}
	var code string
	if len(eb.Code) > 0 && eb.Code[0] == '"' {
		_ = json.Unmarshal(eb.Code, &code)
	}
	if code == "" {
		code = eb.ErrorCode
	}
	gerr.Code = code
	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.Error} {
		if m != "" {
			gerr.Message = m
			break
		}
	}
	if gerr.Message == "" {
		gerr.Message = http.StatusText(status)
	}
	return gerr
}

// IsNotFound reports whether err is a gateway not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gateway.ErrNotFound)
}
