package service

import (
	"context"
	"io"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/stretchr/testify/mock"
)

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

type mockAuth struct{ mock.Mock }

func (m *mockAuth) session(args mock.Arguments) (*gateway.Session, error) {
	if s, ok := args.Get(0).(*gateway.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) SignUp(ctx context.Context, email, password string) (*gateway.Session, error) {
	return m.session(m.Called(ctx, email, password))
}

func (m *mockAuth) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	return m.session(m.Called(ctx, email, password))
}

func (m *mockAuth) Refresh(ctx context.Context, refreshToken string) (*gateway.Session, error) {
	return m.session(m.Called(ctx, refreshToken))
}

func (m *mockAuth) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockAuth) GetUser(ctx context.Context, accessToken string) (*gateway.Identity, error) {
	args := m.Called(ctx, accessToken)
	if id, ok := args.Get(0).(*gateway.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ gateway.Auth = (*mockAuth)(nil)

type mockObjects struct{ mock.Mock }

func (m *mockObjects) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, path, body, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockObjects) PublicURL(path string) string {
	return "https://cdn.test/summaries/" + path
}

func (m *mockObjects) PathFromURL(rawURL string) (string, bool) {
	const base = "https://cdn.test/summaries/"
	if len(rawURL) > len(base) && rawURL[:len(base)] == base {
		return rawURL[len(base):], true
	}
	return "", false
}

func (m *mockObjects) Remove(ctx context.Context, paths []string) error {
	return m.Called(ctx, paths).Error(0)
}

var _ gateway.Objects = (*mockObjects)(nil)
