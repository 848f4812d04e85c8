package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonmarlowe/bookings/internal/domain"
)

type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (*domain.Account, error)
	ClearLockout(ctx context.Context, id int64) error
	ResetLock(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountCols = `id, email, password_hash, name, role, is_active,
failed_attempts, lock_until, last_login_at, password_changed_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.IsActive,
		&a.FailedAttempts, &a.LockUntil, &a.LastLoginAt, &a.PasswordChangedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE lower(email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, email))
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, id))
}

// RecordFailedAttempt increments the failure counter and, when the new count
// reaches the threshold, arms the lock in the same statement so concurrent
// attempts cannot skip past it.
func (r *accountRepository) RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (*domain.Account, error) {
	const q = `
		UPDATE accounts
		SET
			failed_attempts = failed_attempts + 1,
			lock_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE lock_until END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, id, threshold, lockUntil))
}

// ClearLockout resets the failure state after a successful login and stamps
// last_login_at.
func (r *accountRepository) ClearLockout(ctx context.Context, id int64) error {
	const q = `
		UPDATE accounts
		SET failed_attempts = 0, lock_until = NULL, last_login_at = now(), updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ResetLock clears an expired lock and its counter without touching
// last_login_at. Called when a login attempt arrives after lock_until has
// passed.
func (r *accountRepository) ResetLock(ctx context.Context, id int64) error {
	const q = `
		UPDATE accounts
		SET failed_attempts = 0, lock_until = NULL, updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `
		UPDATE accounts
		SET password_hash = $2, password_changed_at = now(), updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
