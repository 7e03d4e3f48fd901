package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps service errors onto status codes. Anything the
// service did not classify is logged and answered with fallback.
func writeServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error, fallback string) {
	msg, known := service.Message(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case known && errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, msg)
	case known && errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, msg)
	default:
		logger.Errorw(op+": service error", "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
