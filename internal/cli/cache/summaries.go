package cache

import (
	"context"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"go.uber.org/zap"
)

var (
	ListOptions   = Options{StaleTime: 2 * time.Minute, GCTime: 5 * time.Minute, Retries: 2}
	DetailOptions = Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute, Retries: 2}
)

// SummaryAPI is the subset of the route client the cache wraps.
type SummaryAPI interface {
	ListSummaries(ctx context.Context, f model.SummaryFilters) (*model.SummaryPage, error)
	// GetSummary returns nil without error for an unknown id.
	GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error)
	CreateSummary(ctx context.Context, in model.SummaryInput) (*model.SummaryWithUser, error)
	UpdateSummary(ctx context.Context, id string, p model.SummaryPatch) (*model.SummaryWithUser, error)
	DeleteSummary(ctx context.Context, id string) ([]string, error)
}

// Summaries is the cached view of the summaries resource. Reads go through
// the cache; mutations go straight to the API and then fix up the cache.
type Summaries struct {
	api    SummaryAPI
	c      *Client
	logger *zap.SugaredLogger
}

func NewSummaries(api SummaryAPI, c *Client, logger *zap.SugaredLogger) *Summaries {
	return &Summaries{api: api, c: c, logger: logger}
}

func (s *Summaries) FetchList(ctx context.Context, f model.SummaryFilters) (*model.SummaryPage, error) {
	f = f.Normalize()
	return Fetch(ctx, s.c, ListKey(f), ListOptions, func(ctx context.Context) (*model.SummaryPage, error) {
		return s.api.ListSummaries(ctx, f)
	})
}

// FetchDetail returns nil for an empty or unknown id.
func (s *Summaries) FetchDetail(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	if id == "" {
		return nil, nil
	}
	return Fetch(ctx, s.c, DetailKey(id), DetailOptions, func(ctx context.Context) (*model.SummaryWithUser, error) {
		return s.api.GetSummary(ctx, id)
	})
}

// Create is never retried. On success every list goes stale and the new
// summary is seeded into its detail entry.
func (s *Summaries) Create(ctx context.Context, in model.SummaryInput) (*model.SummaryWithUser, error) {
	out, err := s.api.CreateSummary(ctx, in)
	if err != nil {
		return nil, err
	}
	s.InvalidateLists(ctx)
	if out != nil {
		if err := s.c.Set(ctx, DetailKey(out.ID), out, DetailOptions.GCTime); err != nil {
			s.logger.Warnw("seed detail failed", "id", out.ID, "error", err)
		}
	}
	return out, nil
}

// Update is never retried. On success lists go stale, the detail entry takes
// the returned value and is then marked stale as well.
func (s *Summaries) Update(ctx context.Context, id string, p model.SummaryPatch) (*model.SummaryWithUser, error) {
	out, err := s.api.UpdateSummary(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.InvalidateLists(ctx)
	key := DetailKey(id)
	if err := s.c.Set(ctx, key, out, DetailOptions.GCTime); err != nil {
		s.logger.Warnw("write detail failed", "id", id, "error", err)
	}
	if err := s.c.InvalidateKey(ctx, key); err != nil {
		s.logger.Warnw("invalidate detail failed", "id", id, "error", err)
	}
	return out, nil
}

// Delete removes the detail entry and marks lists stale. On failure the
// cache is left alone.
func (s *Summaries) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := s.api.DeleteSummary(ctx, id); err != nil {
		return false, err
	}
	if err := s.c.Remove(ctx, DetailKey(id)); err != nil {
		s.logger.Warnw("remove detail failed", "id", id, "error", err)
	}
	s.InvalidateLists(ctx)
	return true, nil
}

// InvalidateLists marks every cached page stale.
func (s *Summaries) InvalidateLists(ctx context.Context) {
	if err := s.c.InvalidatePrefix(ctx, ListPrefix); err != nil {
		s.logger.Warnw("invalidate lists failed", "error", err)
	}
}

func (s *Summaries) PrefetchList(ctx context.Context, f model.SummaryFilters) error {
	_, err := s.FetchList(ctx, f)
	return err
}

func (s *Summaries) PrefetchDetail(ctx context.Context, id string) error {
	_, err := s.FetchDetail(ctx, id)
	return err
}

// Cached reads the detail entry without fetching.
func (s *Summaries) Cached(ctx context.Context, id string) (*model.SummaryWithUser, bool) {
	v, ok, err := Peek[*model.SummaryWithUser](ctx, s.c, DetailKey(id))
	if err != nil {
		s.logger.Warnw("peek detail failed", "id", id, "error", err)
		return nil, false
	}
	return v, ok && v != nil
}

// UpdateCached rewrites a cached detail entry in place. Nothing happens when
// the entry is not cached.
func (s *Summaries) UpdateCached(ctx context.Context, id string, fn func(*model.SummaryWithUser) *model.SummaryWithUser) error {
	cur, ok := s.Cached(ctx, id)
	if !ok {
		return nil
	}
	return s.c.Set(ctx, DetailKey(id), fn(cur), DetailOptions.GCTime)
}

// AddToList prepends item to a cached page and bumps its total. Pages that
// are not cached are left alone.
func (s *Summaries) AddToList(ctx context.Context, f model.SummaryFilters, item model.SummaryWithUser) error {
	f = f.Normalize()
	key := ListKey(f)
	page, ok, err := Peek[*model.SummaryPage](ctx, s.c, key)
	if err != nil || !ok || page == nil {
		return err
	}
	page.Summaries = append([]model.SummaryWithUser{item}, page.Summaries...)
	page.Pagination = model.NewPagination(page.Pagination.Page, page.Pagination.Limit, page.Pagination.Total+1)
	return s.c.Set(ctx, key, page, ListOptions.GCTime)
}
