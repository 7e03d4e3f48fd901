package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/handlers"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// fakeAuth is an in-memory auth service. Tokens are "tok-<user id>".
type fakeAuth struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
}

type fakeAccount struct {
	id       string
	password string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]fakeAccount{}}
}

func (a *fakeAuth) session(id, email string) *gateway.Session {
	return &gateway.Session{
		AccessToken:  "tok-" + id,
		RefreshToken: "ref-" + id,
		ExpiresIn:    3600,
		TokenType:    "bearer",
		User:         &gateway.Identity{ID: id, Email: email},
	}
}

func (a *fakeAuth) SignUp(_ context.Context, email, password string) (*gateway.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.accounts[email]; ok {
		return nil, &gateway.Error{Status: 422, Message: "User already registered"}
	}
	id := uuid.NewString()
	a.accounts[email] = fakeAccount{id: id, password: password}
	return a.session(id, email), nil
}

func (a *fakeAuth) SignIn(_ context.Context, email, password string) (*gateway.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[email]
	if !ok || acc.password != password {
		return nil, &gateway.Error{Status: 400, Message: "Invalid login credentials"}
	}
	return a.session(acc.id, email), nil
}

func (a *fakeAuth) Refresh(_ context.Context, refreshToken string) (*gateway.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for email, acc := range a.accounts {
		if "ref-"+acc.id == refreshToken {
			return a.session(acc.id, email), nil
		}
	}
	return nil, &gateway.Error{Status: 400, Message: "Invalid Refresh Token"}
}

func (a *fakeAuth) SignOut(context.Context, string) error { return nil }

func (a *fakeAuth) GetUser(_ context.Context, token string) (*gateway.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for email, acc := range a.accounts {
		if "tok-"+acc.id == token {
			return &gateway.Identity{ID: acc.id, Email: email}, nil
		}
	}
	// Tokens minted directly by tests.
	if id, ok := strings.CutPrefix(token, "tok-"); ok && id != "" {
		return &gateway.Identity{ID: id}, nil
	}
	return nil, &gateway.Error{Status: 401, Message: "invalid JWT"}
}

var _ gateway.Auth = (*fakeAuth)(nil)

const objectsBase = "http://objects.test/summaries/"

// memObjects is an in-memory bucket.
type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemObjects() *memObjects { return &memObjects{data: map[string][]byte{}} }

func (o *memObjects) Upload(_ context.Context, path string, body io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.data[path] = b
	return path, nil
}

func (o *memObjects) PublicURL(path string) string { return objectsBase + path }

func (o *memObjects) PathFromURL(rawURL string) (string, bool) {
	return strings.CutPrefix(rawURL, objectsBase)
}

func (o *memObjects) Remove(_ context.Context, paths []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range paths {
		delete(o.data, p)
	}
	return nil
}

func (o *memObjects) has(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.data[path]
	return ok
}

var _ gateway.Objects = (*memObjects)(nil)

type mockRecords struct{ mock.Mock }

func (m *mockRecords) ListSummaries(ctx context.Context, f model.SummaryFilters) ([]model.SummaryWithUser, int64, error) {
	args := m.Called(ctx, f)
	rows, _ := args.Get(0).([]model.SummaryWithUser)
	return rows, args.Get(1).(int64), args.Error(2)
}
func (m *mockRecords) GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*model.SummaryWithUser); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecords) InsertSummary(ctx context.Context, s *model.Summary) (*model.Summary, error) {
	args := m.Called(ctx, s)
	if out, ok := args.Get(0).(*model.Summary); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecords) UpdateSummary(ctx context.Context, id, ownerID string, updates map[string]any) (*model.Summary, error) {
	args := m.Called(ctx, id, ownerID, updates)
	if out, ok := args.Get(0).(*model.Summary); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecords) DeleteSummary(ctx context.Context, id, ownerID string) error {
	return m.Called(ctx, id, ownerID).Error(0)
}
func (m *mockRecords) ListUsers(ctx context.Context, f model.UserFilters) ([]model.User, int64, error) {
	args := m.Called(ctx, f)
	rows, _ := args.Get(0).([]model.User)
	return rows, args.Get(1).(int64), args.Error(2)
}
func (m *mockRecords) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecords) UpsertUser(ctx context.Context, u *model.User) (*model.User, error) {
	args := m.Called(ctx, u)
	if out, ok := args.Get(0).(*model.User); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecords) UpdateUser(ctx context.Context, id string, updates map[string]any) (*model.User, error) {
	args := m.Called(ctx, id, updates)
	if out, ok := args.Get(0).(*model.User); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecords) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var _ gateway.Records = (*mockRecords)(nil)

func errNotFound() error {
	return &gateway.Error{Status: 406, Code: gateway.CodeNotFound, Message: "no rows"}
}

// testEnv is a router over real services and swappable gateways.
type testEnv struct {
	router  http.Handler
	auth    *fakeAuth
	objects *memObjects
}

func newTestEnv(t *testing.T, records gateway.Records) *testEnv {
	t.Helper()
	cfg := &config.Config{MaxUploadMB: 1}
	logger := zap.NewNop().Sugar()
	auth := newFakeAuth()
	objects := newMemObjects()

	h := handlers.NewHandler(handlers.Services{
		Auth:      service.NewAuthService(auth, records, logger),
		Summaries: service.NewSummaryService(records, logger),
		Users:     service.NewUserService(records, logger),
		Files:     service.NewFileService(objects, cfg.MaxUploadBytes(), logger),
	}, auth, logger, cfg)
	return &testEnv{router: h.Router, auth: auth, objects: objects}
}

// do sends a JSON request. A non-empty userID authenticates as that user.
func (e *testEnv) do(t *testing.T, method, path string, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer tok-"+userID)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rr)["error"]
}

