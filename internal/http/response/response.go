package response

import (
	"encoding/json"
	"net/http"

	"github.com/salonmarlowe/bookings/pkg/logger"
)

// Envelope shapes: success is {"success":true,"data":...}, failure is
// {"success":false,"error":"...","code":"..."}.

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Error codes surfaced to clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenRequired      = "TOKEN_REQUIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeForbidden          = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound           = "NOT_FOUND"
	CodeStateConflict      = "STATE_CONFLICT"
	CodeInvalidService     = "INVALID_SERVICE"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      = "INTERNAL_ERROR"
)

func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data}); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorEnvelope{Success: false, Error: message, Code: code}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message, CodeValidation)
}

func Unauthorized(w http.ResponseWriter, message, code string) {
	Error(w, http.StatusUnauthorized, message, code)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message, CodeStateConflict)
}

func Locked(w http.ResponseWriter, message string) {
	Error(w, http.StatusLocked, message, CodeAccountLocked)
}

func RateLimit(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

// InternalError hides the cause from the client; the detail lives in the
// server log only.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
}
