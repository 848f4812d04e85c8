package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/http/response"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

// ListRequests handles GET /api/admin/requests
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var status *domain.RequestStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		st, ok := domain.ParseRequestStatus(statusParam)
		if !ok {
			response.BadRequest(w, "invalid status parameter")
			return
		}
		status = &st
	}

	details, err := h.adminService.ListRequests(r.Context(), status, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list requests", "error", err)
		response.InternalError(w)
		return
	}
	if details == nil {
		details = []domain.RequestDetail{}
	}
	response.JSON(w, http.StatusOK, details)
}

// GetAdminRequest handles GET /api/admin/requests/{id}
func (h *Handlers) GetAdminRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.adminService.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRequestNotFound) {
			response.NotFound(w, "request not found")
			return
		}
		logger.ErrorContext(r.Context(), "Failed to get request", "error", err, "request_id", id)
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusOK, detail)
}

// ApproveRequest handles PUT /api/admin/requests/{id}/approve
func (h *Handlers) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}

	var req domain.ApproveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PreferenceID <= 0 {
		response.BadRequest(w, "preference_id is required")
		return
	}

	appt, err := h.adminService.Approve(r.Context(), id, req.PreferenceID, req.AdminNotes)
	if err != nil {
		h.writeRequestStateError(w, r, err, id)
		return
	}
	response.JSON(w, http.StatusOK, appt)
}

// RescheduleRequest handles PUT /api/admin/requests/{id}/reschedule
func (h *Handlers) RescheduleRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}

	var req domain.RescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ar, err := h.adminService.Reschedule(r.Context(), id, req.SuggestedDatetime, req.AdminNotes)
	if err != nil {
		h.writeRequestStateError(w, r, err, id)
		return
	}
	response.JSON(w, http.StatusOK, ar)
}

// CancelRequest handles DELETE /api/admin/requests/{id}
func (h *Handlers) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}

	var req domain.CancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	ar, err := h.adminService.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.writeRequestStateError(w, r, err, id)
		return
	}
	response.JSON(w, http.StatusOK, ar)
}

// ListAppointments handles GET /api/admin/appointments
func (h *Handlers) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var from, to *time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid from parameter")
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid to parameter")
			return
		}
		to = &t
	}

	appointments, err := h.adminService.ListAppointments(r.Context(), from, to, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list appointments", "error", err)
		response.InternalError(w)
		return
	}
	if appointments == nil {
		appointments = []domain.Appointment{}
	}
	response.JSON(w, http.StatusOK, appointments)
}

// Export handles GET /api/export
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	dump, err := h.adminService.Export(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Export failed", "error", err)
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusOK, dump)
}

func (h *Handlers) writeRequestStateError(w http.ResponseWriter, r *http.Request, err error, requestID int64) {
	switch {
	case errors.Is(err, domain.ErrRequestNotFound):
		response.NotFound(w, "request not found")
	case errors.Is(err, domain.ErrRequestNotPending):
		response.Conflict(w, "request is not in a state that allows this action")
	case errors.Is(err, domain.ErrInvalidPreference):
		response.BadRequest(w, "preference does not belong to this request")
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(w, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Admin action failed", "error", err, "request_id", requestID)
		response.InternalError(w)
	}
}

func requestIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid request ID")
		return 0, false
	}
	return id, true
}
