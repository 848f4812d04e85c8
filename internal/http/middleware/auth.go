package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/http/response"
	"github.com/salonmarlowe/bookings/internal/service"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

type ctxKey string

const (
	ctxAccount     ctxKey = "account"
	ctxTokenExpiry ctxKey = "token_expiry"
)

// RequireAuth validates the bearer token and re-fetches the account so a
// deactivated admin is rejected even while their token is still unexpired.
func RequireAuth(authService service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "authorization token required", response.CodeTokenRequired)
				return
			}
			token := strings.TrimPrefix(authz, "Bearer ")

			account, expiresAt, err := authService.Verify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrTokenExpired):
					response.Unauthorized(w, "token expired", response.CodeTokenExpired)
				case errors.Is(err, domain.ErrUserNotFound):
					response.Unauthorized(w, "account no longer active", response.CodeUserNotFound)
				case errors.Is(err, domain.ErrInvalidToken):
					response.Unauthorized(w, "invalid token", response.CodeInvalidToken)
				default:
					logger.ErrorContext(r.Context(), "Token verification failed", "error", err)
					response.InternalError(w)
				}
				return
			}

			ctx := context.WithValue(r.Context(), ctxAccount, account)
			ctx = context.WithValue(ctx, ctxTokenExpiry, expiresAt)
			ctx = context.WithValue(ctx, logger.AccountIDKey, account.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to the given roles. Must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := AccountFrom(r)
			if account == nil {
				response.Unauthorized(w, "authorization token required", response.CodeTokenRequired)
				return
			}
			if !allowed[account.Role] {
				response.Forbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountFrom returns the verified account attached by RequireAuth, or nil.
func AccountFrom(r *http.Request) *domain.Account {
	if account, ok := r.Context().Value(ctxAccount).(*domain.Account); ok {
		return account
	}
	return nil
}

// TokenExpiryFrom returns the verified token's expiry, or nil.
func TokenExpiryFrom(r *http.Request) *time.Time {
	if expiry, ok := r.Context().Value(ctxTokenExpiry).(*time.Time); ok {
		return expiry
	}
	return nil
}
