package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-api/internal/repo"
	"github.com/BuzzLyutic/task-api/internal/service"
	"github.com/BuzzLyutic/task-api/pkg/respond"
)

type AuthHandler struct {
	service *service.AuthService
	limiter *RateLimiter
	logger  *zap.Logger
}

func NewAuthHandler(srv *service.AuthService, limiter *RateLimiter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: srv,
		limiter: limiter,
		logger:  logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	h.logger.Info("user registered", zap.String("email", user.Email))
	respond.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		h.logger.Warn("rate limit exceeded", zap.String("ip", r.RemoteAddr))
		respond.Error(w, r, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
		return false
	}
	return true
}

func (h *AuthHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		respond.Error(w, r, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
