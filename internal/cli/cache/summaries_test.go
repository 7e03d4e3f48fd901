package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

type mockAPI struct{ mock.Mock }

var _ SummaryAPI = (*mockAPI)(nil)

func (m *mockAPI) ListSummaries(ctx context.Context, f model.SummaryFilters) (*model.SummaryPage, error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(*model.SummaryPage)
	return p, args.Error(1)
}

func (m *mockAPI) GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*model.SummaryWithUser)
	return s, args.Error(1)
}

func (m *mockAPI) CreateSummary(ctx context.Context, in model.SummaryInput) (*model.SummaryWithUser, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*model.SummaryWithUser)
	return s, args.Error(1)
}

func (m *mockAPI) UpdateSummary(ctx context.Context, id string, p model.SummaryPatch) (*model.SummaryWithUser, error) {
	args := m.Called(ctx, id, p)
	s, _ := args.Get(0).(*model.SummaryWithUser)
	return s, args.Error(1)
}

func (m *mockAPI) DeleteSummary(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

func newTestSummaries(t *testing.T) (*Summaries, *mockAPI, *MemoryStore, *clock) {
	t.Helper()
	clk := newClock()
	c, s := newTestClient(clk)
	api := &mockAPI{}
	t.Cleanup(func() { api.AssertExpectations(t) })
	return NewSummaries(api, c, zap.NewNop().Sugar()), api, s, clk
}

func summary(id, name string) *model.SummaryWithUser {
	return &model.SummaryWithUser{Summary: model.Summary{ID: id, Name: name, UserID: "u1", FileURLs: []string{"https://x/" + id}}}
}

func page(items ...model.SummaryWithUser) *model.SummaryPage {
	return &model.SummaryPage{Summaries: items, Pagination: model.NewPagination(1, 10, int64(len(items)))}
}

func TestSummaries_FetchListCachesPerFilters(t *testing.T) {
	ctx := context.Background()
	s, api, _, _ := newTestSummaries(t)

	norm := model.SummaryFilters{}.Normalize()
	api.On("ListSummaries", mock.Anything, norm).Return(page(*summary("a", "A")), nil).Once()

	p1, err := s.FetchList(ctx, model.SummaryFilters{})
	require.NoError(t, err)
	p2, err := s.FetchList(ctx, model.SummaryFilters{Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Len(t, p1.Summaries, 1)
}

func TestSummaries_FetchDetail(t *testing.T) {
	ctx := context.Background()
	s, api, _, _ := newTestSummaries(t)

	got, err := s.FetchDetail(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, got, "empty id is never fetched")

	api.On("GetSummary", mock.Anything, "a").Return(summary("a", "A"), nil).Once()
	got, err = s.FetchDetail(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	cached, ok := s.Cached(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "A", cached.Name)
}

func TestSummaries_CreateInvalidatesListsAndSeedsDetail(t *testing.T) {
	ctx := context.Background()
	s, api, store, _ := newTestSummaries(t)

	norm := model.SummaryFilters{}.Normalize()
	api.On("ListSummaries", mock.Anything, norm).Return(page(), nil).Once()
	_, err := s.FetchList(ctx, norm)
	require.NoError(t, err)

	in := model.SummaryInput{Name: "New", FileURLs: []string{"https://x/1"}}
	api.On("CreateSummary", mock.Anything, in).Return(summary("n1", "New"), nil).Once()
	created, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "n1", created.ID)

	list, _ := store.Get(ctx, ListKey(norm))
	assert.True(t, list.Invalidated)

	// the detail read is served from the seeded entry
	got, err := s.FetchDetail(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
}

func TestSummaries_CreateFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	s, api, store, _ := newTestSummaries(t)

	norm := model.SummaryFilters{}.Normalize()
	api.On("ListSummaries", mock.Anything, norm).Return(page(), nil).Once()
	_, _ = s.FetchList(ctx, norm)

	in := model.SummaryInput{Name: "x"}
	api.On("CreateSummary", mock.Anything, in).Return(nil, errors.New("boom")).Once()
	_, err := s.Create(ctx, in)
	require.Error(t, err)

	list, _ := store.Get(ctx, ListKey(norm))
	assert.False(t, list.Invalidated)
}

func TestSummaries_UpdateWritesThenInvalidatesDetail(t *testing.T) {
	ctx := context.Background()
	s, api, store, _ := newTestSummaries(t)

	name := "Renamed"
	patch := model.SummaryPatch{Name: &name}
	api.On("UpdateSummary", mock.Anything, "a", patch).Return(summary("a", name), nil).Once()

	_, err := s.Update(ctx, "a", patch)
	require.NoError(t, err)

	e, _ := store.Get(ctx, DetailKey("a"))
	require.NotNil(t, e)
	assert.True(t, e.Invalidated)
	cached, ok := s.Cached(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, name, cached.Name)

	// the next read goes back to the server
	api.On("GetSummary", mock.Anything, "a").Return(summary("a", name), nil).Once()
	_, err = s.FetchDetail(ctx, "a")
	require.NoError(t, err)
}

func TestSummaries_DeleteRemovesDetailAndInvalidatesLists(t *testing.T) {
	ctx := context.Background()
	s, api, store, _ := newTestSummaries(t)

	norm := model.SummaryFilters{}.Normalize()
	api.On("ListSummaries", mock.Anything, norm).Return(page(*summary("a", "A")), nil).Once()
	api.On("GetSummary", mock.Anything, "a").Return(summary("a", "A"), nil).Once()
	_, _ = s.FetchList(ctx, norm)
	_, _ = s.FetchDetail(ctx, "a")

	api.On("DeleteSummary", mock.Anything, "a").Return([]string{"https://x/a"}, nil).Once()
	ok, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	d, _ := store.Get(ctx, DetailKey("a"))
	assert.Nil(t, d)
	l, _ := store.Get(ctx, ListKey(norm))
	assert.True(t, l.Invalidated)
}

func TestSummaries_DeleteFailure(t *testing.T) {
	ctx := context.Background()
	s, api, _, _ := newTestSummaries(t)

	api.On("DeleteSummary", mock.Anything, "a").Return(nil, errors.New("nope")).Once()
	ok, err := s.Delete(ctx, "a")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestSummaries_AddToList(t *testing.T) {
	ctx := context.Background()
	s, api, _, _ := newTestSummaries(t)

	// uncached pages are left alone
	require.NoError(t, s.AddToList(ctx, model.SummaryFilters{Page: 3}, *summary("z", "Z")))

	norm := model.SummaryFilters{}.Normalize()
	api.On("ListSummaries", mock.Anything, norm).Return(page(*summary("a", "A")), nil).Once()
	_, _ = s.FetchList(ctx, norm)

	require.NoError(t, s.AddToList(ctx, norm, *summary("b", "B")))
	p, err := s.FetchList(ctx, norm)
	require.NoError(t, err)
	require.Len(t, p.Summaries, 2)
	assert.Equal(t, "b", p.Summaries[0].ID)
	assert.Equal(t, int64(2), p.Pagination.Total)
}

func TestSummaries_UpdateCached(t *testing.T) {
	ctx := context.Background()
	s, api, _, clk := newTestSummaries(t)

	require.NoError(t, s.UpdateCached(ctx, "a", func(v *model.SummaryWithUser) *model.SummaryWithUser {
		t.Fatal("called for an uncached entry")
		return v
	}))

	api.On("GetSummary", mock.Anything, "a").Return(summary("a", "A"), nil).Once()
	_, _ = s.FetchDetail(ctx, "a")
	clk.advance(time.Minute)

	require.NoError(t, s.UpdateCached(ctx, "a", func(v *model.SummaryWithUser) *model.SummaryWithUser {
		v.Name = "Edited"
		return v
	}))
	got, err := s.FetchDetail(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Name)
}

func TestSummaries_PrefetchList(t *testing.T) {
	ctx := context.Background()
	s, api, store, _ := newTestSummaries(t)

	norm := model.SummaryFilters{Page: 2}.Normalize()
	api.On("ListSummaries", mock.Anything, norm).Return(page(), nil).Once()
	require.NoError(t, s.PrefetchList(ctx, norm))

	e, _ := store.Get(ctx, ListKey(norm))
	assert.NotNil(t, e)
}
