package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gilad-Weinberger/Sikumon/internal/middleware"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SummaryHandler serves the summaries catalog.
type SummaryHandler struct {
	SummaryService *service.SummaryService
	Logger         *zap.SugaredLogger
}

func NewSummaryHandler(s *service.SummaryService, logger *zap.SugaredLogger) *SummaryHandler {
	return &SummaryHandler{SummaryService: s, Logger: logger}
}

type summaryResponse struct {
	Summary *model.SummaryWithUser `json:"summary"`
}

type deleteSummaryResponse struct {
	Message         string   `json:"message"`
	DeletedFileURLs []string `json:"deletedFileUrls"`
}

// List answers GET /api/summaries?page&limit&search&user_id&sort_by&sort_order.
func (h *SummaryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.SummaryFilters{
		Page:      atoiOr(q.Get("page"), 0),
		Limit:     atoiOr(q.Get("limit"), 0),
		Search:    q.Get("search"),
		UserID:    q.Get("user_id"),
		SortBy:    q.Get("sort_by"),
		SortOrder: model.SortOrder(q.Get("sort_order")),
	}
	page, err := h.SummaryService.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.Logger, "ListSummaries", err, "Failed to fetch summaries")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.SummaryService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Logger, "GetSummary", err, "Failed to fetch summary")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: s})
}

func (h *SummaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var in model.SummaryInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s, err := h.SummaryService.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, h.Logger, "CreateSummary", err, "Failed to create summary")
		return
	}
	writeJSON(w, http.StatusCreated, summaryResponse{Summary: s})
}

func (h *SummaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var p model.SummaryPatch
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s, err := h.SummaryService.Update(r.Context(), userID, chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, h.Logger, "UpdateSummary", err, "Failed to update summary")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: s})
}

func (h *SummaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	urls, err := h.SummaryService.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Logger, "DeleteSummary", err, "Failed to delete summary")
		return
	}
	writeJSON(w, http.StatusOK, deleteSummaryResponse{Message: "Summary deleted successfully", DeletedFileURLs: urls})
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
