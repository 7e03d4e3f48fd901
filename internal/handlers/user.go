package handlers

import (
	"net/http"

	"github.com/Gilad-Weinberger/Sikumon/internal/middleware"
	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler serves user profiles.
type UserHandler struct {
	UserService *service.UserService
	Logger      *zap.SugaredLogger
}

func NewUserHandler(s *service.UserService, logger *zap.SugaredLogger) *UserHandler {
	return &UserHandler{UserService: s, Logger: logger}
}

type userResponse struct {
	User *model.User `json:"user"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.UserService.List(r.Context(), model.UserFilters{
		Page:   atoiOr(q.Get("page"), 0),
		Limit:  atoiOr(q.Get("limit"), 0),
		Search: q.Get("search"),
		Grade:  q.Get("grade"),
	})
	if err != nil {
		writeServiceError(w, h.Logger, "ListUsers", err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var in service.UpsertUserInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.UserService.Upsert(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, h.Logger, "UpsertUser", err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{User: u})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Logger, "GetUser", err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var p model.UserPatch
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.UserService.Update(r.Context(), userID, chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, h.Logger, "UpdateUser", err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.UserService.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.Logger, "DeleteUser", err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
