package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"loanfriend/internal/api/handler/dto"
	"loanfriend/internal/api/middleware"
	"loanfriend/internal/domain/user"
	"loanfriend/internal/pkg/apperrors"
)

type UserHandler struct {
	service user.UserService
	logger  *slog.Logger
}

func NewUserHandler(s user.UserService, l *slog.Logger) *UserHandler {
	return &UserHandler{
		service: s,
		logger:  l.With("component", "UserHandler"),
	}
}

func getUserIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "userID")
	if idStr == "" {
		return 0, fmt.Errorf("userID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// Me returns the authenticated caller's own account.
//
// @Summary Get own account
// @Tags Users
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /users/me [get]
// @Security BearerAuth
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, apperrors.ErrUnauthorized)
		return
	}

	u, err := h.service.GetUser(r.Context(), identity.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// ListUsers returns every borrower account, for admin review.
//
// @Summary List borrower accounts
// @Tags Users
// @Produce json
// @Success 200 {array} dto.UserResponse
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /users [get]
// @Security BearerAuth
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserListResponse(users))
}

// GetUser returns one account by ID.
//
// @Summary Get an account
// @Tags Users
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Router /users/{userID} [get]
// @Security BearerAuth
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// ApproveUser activates a pending account.
//
// @Summary Approve a pending account
// @Tags Users
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Router /users/{userID}/approve [put]
// @Security BearerAuth
func (h *UserHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	u, err := h.service.ApproveUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// SuspendUser deactivates an account.
//
// @Summary Suspend an account
// @Tags Users
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Router /users/{userID}/suspend [put]
// @Security BearerAuth
func (h *UserHandler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	u, err := h.service.SuspendUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(u))
}
