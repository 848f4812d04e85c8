package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonmarlowe/bookings/internal/http/response"
	"github.com/salonmarlowe/bookings/internal/service"
)

type Handlers struct {
	authService    service.AuthService
	bookingService service.BookingService
	adminService   service.AdminService
	pool           *pgxpool.Pool
}

func New(
	authService service.AuthService,
	bookingService service.BookingService,
	adminService service.AdminService,
	pool *pgxpool.Pool,
) *Handlers {
	return &Handlers{
		authService:    authService,
		bookingService: bookingService,
		adminService:   adminService,
		pool:           pool,
	}
}

// Health reports process liveness and database reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			response.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	response.JSON(w, http.StatusOK, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
