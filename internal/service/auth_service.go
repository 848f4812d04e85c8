package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/repo/postgres"
	"github.com/salonmarlowe/bookings/pkg/auth"
	"github.com/salonmarlowe/bookings/pkg/config"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

// LockedError carries how long the caller has to wait. It unwraps to
// domain.ErrAccountLocked so handlers can match on the sentinel.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RemainingMinutes())
}

func (e *LockedError) Unwrap() error { return domain.ErrAccountLocked }

func (e *LockedError) RemainingMinutes() int {
	return int(math.Ceil(e.RetryAfter.Minutes()))
}

type AuthService interface {
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	Verify(ctx context.Context, token string) (*domain.Account, *time.Time, error)
	ChangePassword(ctx context.Context, accountID int64, req *domain.ChangePasswordRequest) error
}

type authService struct {
	accounts postgres.AccountRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(accounts postgres.AccountRepository, cfg *config.Config) AuthService {
	return &authService{
		accounts: accounts,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Login enforces the lockout policy: five consecutive failures lock the
// account for the configured duration. The lock is not cleared by a timer;
// the first attempt after expiry resets both the lock and the counter, then
// proceeds as if the account had never been locked.
func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	// Missing and inactive accounts answer identically to wrong passwords so
	// the endpoint cannot be used to enumerate admin emails.
	if account == nil || !account.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	if account.Locked(now) {
		return nil, &LockedError{RetryAfter: account.LockUntil.Sub(now)}
	}
	if account.LockUntil != nil {
		// Lock has expired; clear it and the counter before evaluating.
		if err := s.accounts.ResetLock(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("failed to reset expired lock: %w", err)
		}
		account.FailedAttempts = 0
		account.LockUntil = nil
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		updated, recErr := s.accounts.RecordFailedAttempt(ctx, account.ID,
			s.cfg.Auth.MaxLoginAttempts, now.Add(s.cfg.Auth.LockoutDuration))
		if recErr != nil {
			return nil, fmt.Errorf("failed to record login attempt: %w", recErr)
		}
		if updated != nil && updated.Locked(now) {
			logger.WarnContext(ctx, "Account locked after repeated failures",
				"account_id", account.ID, "attempts", updated.FailedAttempts)
			return nil, &LockedError{RetryAfter: updated.LockUntil.Sub(now)}
		}
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.accounts.ClearLockout(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("failed to clear lockout: %w", err)
	}

	ttl := s.cfg.Auth.TokenTTL
	if req.RememberMe {
		ttl = s.cfg.Auth.RememberMeTTL
	}
	token, err := auth.NewToken(account.ID, account.Email, account.Role, account.Name,
		s.cfg.Auth.JWTSecret, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &domain.LoginResponse{
		Token:     token,
		ExpiresIn: int64(ttl.Seconds()),
		User:      account.ToAccountInfo(),
	}, nil
}

// Verify validates the token and then re-fetches the account so a deactivated
// admin loses access immediately, without a token blacklist.
func (s *authService) Verify(ctx context.Context, token string) (*domain.Account, *time.Time, error) {
	claims, err := auth.Parse(token, s.cfg.Auth.JWTSecret)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, nil, domain.ErrTokenExpired
		}
		return nil, nil, domain.ErrInvalidToken
	}

	account, err := s.accounts.FindByID(ctx, claims.Sub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil || !account.IsActive {
		return nil, nil, domain.ErrUserNotFound
	}

	var expiresAt *time.Time
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		expiresAt = &t
	}
	return account, expiresAt, nil
}

func (s *authService) ChangePassword(ctx context.Context, accountID int64, req *domain.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil || !account.IsActive {
		return domain.ErrUserNotFound
	}

	valid, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return domain.ErrInvalidCredentials
	}

	hash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.InfoContext(ctx, "Password changed", "account_id", accountID)
	return nil
}
