package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"go.uber.org/zap"
)

// SummaryService shapes and checks summary operations before they reach the
// records gateway.
type SummaryService struct {
	records gateway.Records
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewSummaryService(records gateway.Records, logger *zap.SugaredLogger) *SummaryService {
	return &SummaryService{records: records, logger: logger, now: time.Now}
}

// List returns one page of the catalog.
func (s *SummaryService) List(ctx context.Context, f model.SummaryFilters) (*model.SummaryPage, error) {
	f = f.Normalize()
	rows, total, err := s.records.ListSummaries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	if rows == nil {
		rows = []model.SummaryWithUser{}
	}
	return &model.SummaryPage{
		Summaries:  rows,
		Pagination: model.NewPagination(f.Page, f.Limit, total),
	}, nil
}

func (s *SummaryService) Get(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	out, err := s.records.GetSummary(ctx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, notFound("Summary not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get summary %s: %w", id, err)
	}
	return out, nil
}

// Create inserts a summary owned by ownerID.
func (s *SummaryService) Create(ctx context.Context, ownerID string, in model.SummaryInput) (*model.SummaryWithUser, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("Name is required")
	}
	if len(in.FileURLs) == 0 {
		return nil, invalid("At least one file URL is required")
	}

	now := s.now().UTC()
	created, err := s.records.InsertSummary(ctx, &model.Summary{
		Name:         name,
		Description:  trimmedOrNil(in.Description),
		UserID:       ownerID,
		FileURLs:     in.FileURLs,
		UploadDate:   now,
		LastEditedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	out := s.withOwner(ctx, *created)
	return &out, nil
}

// Update applies a partial edit to a summary owned by ownerID. A summary that
// exists but belongs to someone else is reported as not found.
func (s *SummaryService) Update(ctx context.Context, ownerID, id string, p model.SummaryPatch) (*model.SummaryWithUser, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	now := s.now().UTC()
	updates := map[string]any{
		"last_edited_at": now,
		"updated_at":     now,
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("Name cannot be empty")
		}
		updates["name"] = name
	}
	if p.Description != nil {
		updates["description"] = nullable(trimmedOrNil(p.Description))
	}
	if p.FileURLs != nil {
		if len(p.FileURLs) == 0 {
			return nil, invalid("At least one file URL is required")
		}
		updates["file_urls"] = p.FileURLs
	}

	updated, err := s.records.UpdateSummary(ctx, id, ownerID, updates)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, notFound("Summary not found or you don't have permission to update it")
	}
	if err != nil {
		return nil, fmt.Errorf("update summary %s: %w", id, err)
	}
	out := s.withOwner(ctx, *updated)
	return &out, nil
}

// Delete removes a summary owned by ownerID and returns the file URLs it
// referenced so the caller can clean up storage.
func (s *SummaryService) Delete(ctx context.Context, ownerID, id string) ([]string, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	const missing = "Summary not found or you don't have permission to delete it"

	existing, err := s.records.GetSummary(ctx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, notFound(missing)
	}
	if err != nil {
		return nil, fmt.Errorf("get summary %s: %w", id, err)
	}
	if existing.UserID != ownerID {
		return nil, notFound(missing)
	}

	if err := s.records.DeleteSummary(ctx, id, ownerID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, notFound(missing)
		}
		return nil, fmt.Errorf("delete summary %s: %w", id, err)
	}
	urls := []string(existing.FileURLs)
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

// withOwner attaches the owner's name. A failed lookup only drops the ref.
func (s *SummaryService) withOwner(ctx context.Context, sum model.Summary) model.SummaryWithUser {
	owner, err := s.records.GetUser(ctx, sum.UserID)
	if err != nil {
		if !errors.Is(err, gateway.ErrNotFound) {
			s.logger.Warnw("owner lookup failed", "summary_id", sum.ID, "user_id", sum.UserID, "error", err)
		}
		return sum.WithUser(nil)
	}
	return sum.WithUser(owner.FullName)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// nullable turns a nil pointer into an untyped nil column value.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
