package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

type summaryEnvelope struct {
	Summary *model.SummaryWithUser `json:"summary"`
}

// ListSummaries fetches one page of the catalog.
func (c *Client) ListSummaries(ctx context.Context, f model.SummaryFilters) (*model.SummaryPage, error) {
	q := pageQuery(f.Page, f.Limit)
	for k, v := range map[string]string{
		"search":     f.Search,
		"user_id":    f.UserID,
		"sort_by":    f.SortBy,
		"sort_order": string(f.SortOrder),
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	var out model.SummaryPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/summaries", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSummary returns nil without error when the summary does not exist.
func (c *Client) GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	var out summaryEnvelope
	err := c.doJSON(ctx, http.MethodGet, "/api/summaries/"+url.PathEscape(id), nil, nil, &out)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Summary, nil
}

func (c *Client) CreateSummary(ctx context.Context, in model.SummaryInput) (*model.SummaryWithUser, error) {
	var out summaryEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/summaries", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Summary, nil
}

func (c *Client) UpdateSummary(ctx context.Context, id string, p model.SummaryPatch) (*model.SummaryWithUser, error) {
	var out summaryEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/api/summaries/"+url.PathEscape(id), nil, p, &out); err != nil {
		return nil, err
	}
	return out.Summary, nil
}

// DeleteSummary returns the file URLs the deleted summary referenced.
func (c *Client) DeleteSummary(ctx context.Context, id string) ([]string, error) {
	var out struct {
		DeletedFileURLs []string `json:"deletedFileUrls"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/summaries/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.DeletedFileURLs, nil
}
