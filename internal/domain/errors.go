package domain

import "errors"

// Errors shared between the repository and service layers. Handlers map these
// onto HTTP status codes and response error codes.
var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrTokenRequired      = errors.New("token required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("insufficient permissions")

	ErrInvalidService    = errors.New("service not found or inactive")
	ErrSubmissionFailed  = errors.New("submission failed")
	ErrRequestNotFound   = errors.New("request not found")
	ErrRequestNotPending = errors.New("request is not pending")
	ErrInvalidPreference = errors.New("preference does not belong to request")
)
