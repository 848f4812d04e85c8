package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/http/response"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	detail, err := h.bookingService.Submit(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			response.BadRequest(w, err.Error())
		case errors.Is(err, domain.ErrInvalidService):
			response.Error(w, http.StatusNotFound, "service not found or inactive", response.CodeInvalidService)
		case errors.Is(err, domain.ErrSubmissionFailed):
			response.InternalError(w)
		default:
			logger.ErrorContext(r.Context(), "Submission failed", "error", err)
			response.InternalError(w)
		}
		return
	}

	response.JSON(w, http.StatusCreated, detail)
}

// GetRequest handles GET /api/requests/{id}
func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid request ID")
		return
	}

	detail, err := h.bookingService.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRequestNotFound) {
			response.NotFound(w, "request not found")
			return
		}
		logger.ErrorContext(r.Context(), "Failed to get request", "error", err, "request_id", id)
		response.InternalError(w)
		return
	}

	// Public detail view never exposes the manage token or admin notes.
	detail.ManageToken = ""
	detail.AdminNotes = ""
	response.JSON(w, http.StatusOK, detail)
}

// ListServices handles GET /api/services
func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.bookingService.ListServices(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list services", "error", err)
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusOK, services)
}
