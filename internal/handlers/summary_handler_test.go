package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSummaries_ListParsesQuery(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)

	want := model.SummaryFilters{Page: 3, Limit: 5, Search: "calc", UserID: "u1", SortBy: "name", SortOrder: model.SortAsc}
	rows := []model.SummaryWithUser{{Summary: model.Summary{ID: "s1", Name: "Calc", UserID: "u1", FileURLs: []string{"x"}}}}
	m.On("ListSummaries", mock.Anything, want).Return(rows, int64(11), nil).Once()

	rr := env.do(t, http.MethodGet, "/api/summaries?page=3&limit=5&search=calc&user_id=u1&sort_by=name&sort_order=asc", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	page := decode[model.SummaryPage](t, rr)
	assert.Equal(t, model.Pagination{Page: 3, Limit: 5, Total: 11, TotalPages: 3}, page.Pagination)
	require.Len(t, page.Summaries, 1)
	assert.Nil(t, page.Summaries[0].User)
	assert.Contains(t, rr.Body.String(), `"user":null`)
	assert.Contains(t, rr.Body.String(), `"totalPages":3`)
	m.AssertExpectations(t)
}

func TestSummaries_ListFailure(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)
	m.On("ListSummaries", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("db down")).Once()

	rr := env.do(t, http.MethodGet, "/api/summaries?page=abc", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to fetch summaries", errorOf(t, rr))
}

func TestSummaries_GetNotFound(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)
	m.On("GetSummary", mock.Anything, "missing").Return(nil, errNotFound()).Once()

	rr := env.do(t, http.MethodGet, "/api/summaries/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Summary not found", errorOf(t, rr))
}

func TestSummaries_CreateRequiresAuthAndInput(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)

	rr := env.do(t, http.MethodPost, "/api/summaries", map[string]any{"name": "x", "file_urls": []string{"u"}}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized", errorOf(t, rr))

	rr = env.do(t, http.MethodPost, "/api/summaries", map[string]any{"name": " ", "file_urls": []string{"u"}}, "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Name is required", errorOf(t, rr))

	rr = env.do(t, http.MethodPost, "/api/summaries", map[string]any{"name": "x", "file_urls": []string{}}, "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "At least one file URL is required", errorOf(t, rr))

	m.AssertNotCalled(t, "InsertSummary", mock.Anything, mock.Anything)
}

func TestSummaries_CreateFailure(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)
	m.On("InsertSummary", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed")).Once()

	rr := env.do(t, http.MethodPost, "/api/summaries", map[string]any{"name": "x", "file_urls": []string{"u"}}, "u1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to create summary", errorOf(t, rr))
}

func TestSummaries_UpdateNotOwner(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)
	m.On("UpdateSummary", mock.Anything, "s1", "u2", mock.Anything).Return(nil, errNotFound()).Once()

	rr := env.do(t, http.MethodPut, "/api/summaries/s1", map[string]any{"name": "hijack"}, "u2")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Summary not found or you don't have permission to update it", errorOf(t, rr))
}

func TestSummaries_Delete(t *testing.T) {
	m := new(mockRecords)
	env := newTestEnv(t, m)
	existing := &model.SummaryWithUser{Summary: model.Summary{ID: "s1", UserID: "u1", FileURLs: []string{"a", "b"}}}
	m.On("GetSummary", mock.Anything, "s1").Return(existing, nil)
	m.On("DeleteSummary", mock.Anything, "s1", "u1").Return(nil).Once()

	rr := env.do(t, http.MethodDelete, "/api/summaries/s1", nil, "u2")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/summaries/s1", nil, "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[struct {
		Message         string   `json:"message"`
		DeletedFileURLs []string `json:"deletedFileUrls"`
	}](t, rr)
	assert.Equal(t, "Summary deleted successfully", body.Message)
	assert.Equal(t, []string{"a", "b"}, body.DeletedFileURLs)
	m.AssertExpectations(t)
}
