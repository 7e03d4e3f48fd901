package handlers

import (
	"net/http"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/middleware"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves sign-up, sign-in, sign-out and the current user.
type AuthHandler struct {
	AuthService *service.AuthService
	Logger      *zap.SugaredLogger
}

func NewAuthHandler(s *service.AuthService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{AuthService: s, Logger: logger}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string           `json:"message"`
	Data    *gateway.Session `json:"data"`
}

type currentUserResponse struct {
	User *gateway.Identity `json:"user"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.AuthService.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.Logger, "SignUp", err, "Internal server error")
		return
	}
	middleware.SetLoginCookie(w, sess)
	writeJSON(w, http.StatusCreated, sessionResponse{Message: "User created successfully", Data: sess})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.Logger, "SignIn", err, "Internal server error")
		return
	}
	middleware.SetLoginCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{Message: "Signed in successfully", Data: sess})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, h.Logger, "Refresh", err, "Internal server error")
		return
	}
	middleware.SetLoginCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{Message: "Session refreshed", Data: sess})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token, _ := gateway.AccessToken(r.Context())
	if err := h.AuthService.SignOut(r.Context(), token); err != nil {
		writeServiceError(w, h.Logger, "SignOut", err, "Internal server error")
		return
	}
	middleware.ClearLoginCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Signed out successfully"})
}

// CurrentUser always answers 200; anonymous callers get a null user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	var id *gateway.Identity
	if token, ok := gateway.AccessToken(r.Context()); ok {
		id = h.AuthService.CurrentUser(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, currentUserResponse{User: id})
}
