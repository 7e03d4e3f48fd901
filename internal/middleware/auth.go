package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/golang-jwt/jwt/v5"
)

// CookieName holds the access token between requests.
const CookieName = "auth_token"

const defaultCookieMaxAge = 3600

type identityKey struct{}

// IdentityLookup resolves an access token through the auth service.
type IdentityLookup interface {
	GetUser(ctx context.Context, accessToken string) (*gateway.Identity, error)
}

type accessClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// WithAuth attaches the caller's identity and access token to the request
// context. The token comes from a Bearer header or the auth cookie. With a
// secret the token is verified locally as HS256; without one it is checked
// through lookup. Requests without a valid token pass through anonymously.
func WithAuth(secret string, lookup IdentityLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			var (
				id  *gateway.Identity
				err error
			)
			switch {
			case secret != "":
				id, err = parseToken(token, secret)
			case lookup != nil:
				id, err = lookup.GetUser(r.Context(), token)
			default:
				err = errors.New("no way to verify tokens")
			}
			if err != nil || id == nil || id.ID == "" {
				if logger != nil {
					logger.Debugw("auth: token rejected", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, id)
			ctx = gateway.WithAccessToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func parseToken(token, secret string) (*gateway.Identity, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &gateway.Identity{ID: claims.Subject, Email: claims.Email, UserMetadata: claims.UserMetadata}, nil
}

// GetIdentity returns the identity set by WithAuth.
func GetIdentity(ctx context.Context) (*gateway.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*gateway.Identity)
	return id, ok && id != nil
}

// GetUserIDFromContext returns the caller's user id.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok {
		return "", false
	}
	return id.ID, true
}

// SetLoginCookie stores the session's access token in the auth cookie.
func SetLoginCookie(w http.ResponseWriter, sess *gateway.Session) {
	if sess == nil || sess.AccessToken == "" {
		return
	}
	maxAge := sess.ExpiresIn
	if maxAge <= 0 {
		maxAge = defaultCookieMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearLoginCookie expires the auth cookie.
func ClearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
