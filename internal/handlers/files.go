package handlers

import (
	"net/http"

	"github.com/Gilad-Weinberger/Sikumon/internal/middleware"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"go.uber.org/zap"
)

// FileHandler accepts uploads and removes stored files.
type FileHandler struct {
	FileService *service.FileService
	Logger      *zap.SugaredLogger
	maxBytes    int64
}

func NewFileHandler(s *service.FileService, logger *zap.SugaredLogger, maxBytes int64) *FileHandler {
	return &FileHandler{FileService: s, Logger: logger, maxBytes: maxBytes}
}

type removeFilesRequest struct {
	URLs []string `json:"urls"`
}

type removeFilesResponse struct {
	Removed int `json:"removed"`
}

// Upload takes a multipart form with a single "file" part.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	// Allow a little room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	stored, err := h.FileService.Store(r.Context(), userID, service.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, h.Logger, "Upload", err, "Failed to upload file")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *FileHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req removeFilesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	n, err := h.FileService.Remove(r.Context(), userID, req.URLs)
	if err != nil {
		writeServiceError(w, h.Logger, "RemoveFiles", err, "Failed to delete files")
		return
	}
	writeJSON(w, http.StatusOK, removeFilesResponse{Removed: n})
}
