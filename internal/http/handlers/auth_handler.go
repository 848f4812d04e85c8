package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/http/middleware"
	"github.com/salonmarlowe/bookings/internal/http/response"
	"github.com/salonmarlowe/bookings/internal/service"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

// Login handles POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		var locked *service.LockedError
		switch {
		case errors.As(err, &locked):
			response.Locked(w, locked.Error())
		case errors.Is(err, domain.ErrInvalidCredentials):
			response.Unauthorized(w, "invalid email or password", response.CodeInvalidCredentials)
		case errors.Is(err, domain.ErrValidation):
			response.BadRequest(w, err.Error())
		default:
			logger.ErrorContext(r.Context(), "Login failed", "error", err)
			response.InternalError(w)
		}
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// VerifyToken handles GET /api/auth/verify. It runs behind RequireAuth, so
// reaching this point means the token parsed and the account is still active.
func (h *Handlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFrom(r)
	if account == nil {
		response.Unauthorized(w, "authorization token required", response.CodeTokenRequired)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"user":       account.ToAccountInfo(),
		"expires_at": middleware.TokenExpiryFrom(r),
	})
}

// ChangePassword handles POST /api/auth/change-password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account := middleware.AccountFrom(r)
	if account == nil {
		response.Unauthorized(w, "authorization token required", response.CodeTokenRequired)
		return
	}

	var req domain.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), account.ID, &req); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			response.Unauthorized(w, "current password is incorrect", response.CodeInvalidCredentials)
		case errors.Is(err, domain.ErrValidation):
			response.BadRequest(w, err.Error())
		case errors.Is(err, domain.ErrUserNotFound):
			response.Unauthorized(w, "account no longer active", response.CodeUserNotFound)
		default:
			logger.ErrorContext(r.Context(), "Password change failed", "error", err)
			response.InternalError(w)
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"changed_at": time.Now().Format(time.RFC3339),
	})
}
