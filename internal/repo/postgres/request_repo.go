package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonmarlowe/bookings/internal/domain"
)

type RequestRepository interface {
	CreateWithPreferences(ctx context.Context, sub *domain.SubmitRequest) (*domain.RequestDetail, error)
	GetDetail(ctx context.Context, id int64) (*domain.RequestDetail, error)
	List(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.RequestDetail, error)
	Approve(ctx context.Context, requestID, preferenceID int64, adminNotes string) (*domain.Appointment, error)
	Reschedule(ctx context.Context, requestID int64, suggestedAt time.Time, adminNotes string) (*domain.AppointmentRequest, error)
	Cancel(ctx context.Context, requestID int64, reason string) (*domain.AppointmentRequest, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestCols = `id, manage_token, customer_id, service_id, status,
customer_notes, admin_notes, suggested_at, deleted_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.AppointmentRequest, error) {
	var ar domain.AppointmentRequest
	err := row.Scan(
		&ar.ID, &ar.ManageToken, &ar.CustomerID, &ar.ServiceID, &ar.Status,
		&ar.CustomerNotes, &ar.AdminNotes, &ar.SuggestedAt, &ar.DeletedAt,
		&ar.CreatedAt, &ar.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ar, nil
}

// CreateWithPreferences runs the whole submission as one transaction: the
// customer upsert, superseding the customer's earlier pending requests for
// the same service, the pending request row, and its preference rows.
func (r *requestRepository) CreateWithPreferences(ctx context.Context, sub *domain.SubmitRequest) (*domain.RequestDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertCustomer = `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, phone = EXCLUDED.phone, updated_at = now()
		RETURNING id, name, email, phone, created_at, updated_at`

	var c domain.Customer
	if err := tx.QueryRow(ctx, upsertCustomer, sub.Customer.Name, sub.Customer.Email, sub.Customer.Phone).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	const supersede = `
		UPDATE appointment_requests
		SET status = 'superseded', updated_at = now()
		WHERE customer_id = $1 AND service_id = $2 AND status = 'pending' AND deleted_at IS NULL`

	if _, err := tx.Exec(ctx, supersede, c.ID, sub.ServiceID); err != nil {
		return nil, err
	}

	const insertRequest = `
		INSERT INTO appointment_requests (manage_token, customer_id, service_id, status, customer_notes, admin_notes)
		VALUES ($1, $2, $3, 'pending', $4, '')
		RETURNING ` + requestCols

	ar, err := scanRequest(tx.QueryRow(ctx, insertRequest, uuid.NewString(), c.ID, sub.ServiceID, sub.Notes))
	if err != nil {
		return nil, err
	}

	const insertPref = `
		INSERT INTO time_preferences (request_id, requested_at, priority, selected)
		VALUES ($1, $2, $3, false)
		RETURNING id, request_id, requested_at, priority, selected`

	prefs := make([]domain.TimePreference, 0, len(sub.PreferredTimes))
	for _, p := range sub.PreferredTimes {
		var tp domain.TimePreference
		if err := tx.QueryRow(ctx, insertPref, ar.ID, p.Datetime, p.Priority).Scan(
			&tp.ID, &tp.RequestID, &tp.RequestedAt, &tp.Priority, &tp.Selected,
		); err != nil {
			return nil, err
		}
		prefs = append(prefs, tp)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.RequestDetail{
		AppointmentRequest: *ar,
		Customer:           &c,
		Preferences:        prefs,
	}, nil
}

func (r *requestRepository) GetDetail(ctx context.Context, id int64) (*domain.RequestDetail, error) {
	const q = `
		SELECT
			ar.id, ar.manage_token, ar.customer_id, ar.service_id, ar.status,
			ar.customer_notes, ar.admin_notes, ar.suggested_at, ar.deleted_at, ar.created_at, ar.updated_at,
			c.id, c.name, c.email, c.phone, c.created_at, c.updated_at,
			s.id, s.name, s.duration_minutes, s.price, s.max_concurrent, s.is_active, s.created_at
		FROM appointment_requests ar
		JOIN customers c ON c.id = ar.customer_id
		JOIN services s ON s.id = ar.service_id
		WHERE ar.id = $1 AND ar.deleted_at IS NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d domain.RequestDetail
	var c domain.Customer
	var s domain.Service
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.ManageToken, &d.CustomerID, &d.ServiceID, &d.Status,
		&d.CustomerNotes, &d.AdminNotes, &d.SuggestedAt, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
		&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.MaxConcurrent, &s.IsActive, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Customer = &c
	d.Service = &s

	prefs, err := r.preferencesFor(ctx, []int64{d.ID})
	if err != nil {
		return nil, err
	}
	d.Preferences = prefs[d.ID]
	return &d, nil
}

func (r *requestRepository) List(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.RequestDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT
			ar.id, ar.manage_token, ar.customer_id, ar.service_id, ar.status,
			ar.customer_notes, ar.admin_notes, ar.suggested_at, ar.deleted_at, ar.created_at, ar.updated_at,
			c.id, c.name, c.email, c.phone, c.created_at, c.updated_at,
			s.id, s.name, s.duration_minutes, s.price, s.max_concurrent, s.is_active, s.created_at
		FROM appointment_requests ar
		JOIN customers c ON c.id = ar.customer_id
		JOIN services s ON s.id = ar.service_id
		WHERE ar.deleted_at IS NULL`
	args := []any{}
	if status != nil {
		q += ` AND ar.status = $1 ORDER BY ar.created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY ar.created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []domain.RequestDetail
	var ids []int64
	for rows.Next() {
		var d domain.RequestDetail
		var c domain.Customer
		var s domain.Service
		if err := rows.Scan(
			&d.ID, &d.ManageToken, &d.CustomerID, &d.ServiceID, &d.Status,
			&d.CustomerNotes, &d.AdminNotes, &d.SuggestedAt, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
			&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
			&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.MaxConcurrent, &s.IsActive, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		d.Customer = &c
		d.Service = &s
		details = append(details, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	prefs, err := r.preferencesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range details {
		details[i].Preferences = prefs[details[i].ID]
	}
	return details, nil
}

func (r *requestRepository) preferencesFor(ctx context.Context, requestIDs []int64) (map[int64][]domain.TimePreference, error) {
	const q = `
		SELECT id, request_id, requested_at, priority, selected
		FROM time_preferences
		WHERE request_id = ANY($1)
		ORDER BY request_id, priority`

	rows, err := r.pool.Query(ctx, q, requestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(map[int64][]domain.TimePreference, len(requestIDs))
	for rows.Next() {
		var tp domain.TimePreference
		if err := rows.Scan(&tp.ID, &tp.RequestID, &tp.RequestedAt, &tp.Priority, &tp.Selected); err != nil {
			return nil, err
		}
		prefs[tp.RequestID] = append(prefs[tp.RequestID], tp)
	}
	return prefs, rows.Err()
}

// Approve is the confirmation transaction: it locks the request row, checks
// state, flips the chosen preference on and its siblings off in one statement,
// confirms the request, and inserts the appointment. Any error rolls the whole
// thing back; partial state is never visible.
//
// The service's max_concurrent limit is not checked against overlapping
// appointments here; concurrent approvals for the same slot only contend on
// the row lock.
func (r *requestRepository) Approve(ctx context.Context, requestID, preferenceID int64, adminNotes string) (*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const lockRequest = `
		SELECT id, customer_id, service_id, status
		FROM appointment_requests
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`

	var (
		id, customerID, serviceID int64
		status                    domain.RequestStatus
	)
	err = tx.QueryRow(ctx, lockRequest, requestID).Scan(&id, &customerID, &serviceID, &status)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	const findPref = `
		SELECT requested_at FROM time_preferences
		WHERE id = $1 AND request_id = $2`

	var scheduledAt time.Time
	err = tx.QueryRow(ctx, findPref, preferenceID, requestID).Scan(&scheduledAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrInvalidPreference
	}
	if err != nil {
		return nil, err
	}

	const findDuration = `SELECT duration_minutes FROM services WHERE id = $1`

	var durationMinutes int
	if err := tx.QueryRow(ctx, findDuration, serviceID).Scan(&durationMinutes); err != nil {
		return nil, err
	}

	// One statement: chosen preference true, all siblings false.
	const selectPref = `
		UPDATE time_preferences
		SET selected = (id = $2)
		WHERE request_id = $1`

	if _, err := tx.Exec(ctx, selectPref, requestID, preferenceID); err != nil {
		return nil, err
	}

	const confirm = `
		UPDATE appointment_requests
		SET status = 'confirmed', admin_notes = $2, updated_at = now()
		WHERE id = $1`

	if _, err := tx.Exec(ctx, confirm, requestID, adminNotes); err != nil {
		return nil, err
	}

	const insertAppointment = `
		INSERT INTO appointments (request_id, preference_id, customer_id, service_id, scheduled_at, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled')
		RETURNING id, request_id, preference_id, customer_id, service_id, scheduled_at, duration_minutes, status, created_at`

	var appt domain.Appointment
	if err := tx.QueryRow(ctx, insertAppointment,
		requestID, preferenceID, customerID, serviceID, scheduledAt, durationMinutes,
	).Scan(
		&appt.ID, &appt.RequestID, &appt.PreferenceID, &appt.CustomerID, &appt.ServiceID,
		&appt.ScheduledAt, &appt.DurationMinutes, &appt.Status, &appt.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *requestRepository) Reschedule(ctx context.Context, requestID int64, suggestedAt time.Time, adminNotes string) (*domain.AppointmentRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockRequestStatus(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	const q = `
		UPDATE appointment_requests
		SET status = 'rescheduled', suggested_at = $2, admin_notes = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + requestCols

	ar, err := scanRequest(tx.QueryRow(ctx, q, requestID, suggestedAt, adminNotes))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ar, nil
}

func (r *requestRepository) Cancel(ctx context.Context, requestID int64, reason string) (*domain.AppointmentRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockRequestStatus(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if status != domain.RequestPending && status != domain.RequestRescheduled {
		return nil, domain.ErrRequestNotPending
	}

	const q = `
		UPDATE appointment_requests
		SET status = 'cancelled', admin_notes = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + requestCols

	ar, err := scanRequest(tx.QueryRow(ctx, q, requestID, reason))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ar, nil
}

func lockRequestStatus(ctx context.Context, tx pgx.Tx, requestID int64) (domain.RequestStatus, error) {
	const q = `
		SELECT status FROM appointment_requests
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`

	var status domain.RequestStatus
	err := tx.QueryRow(ctx, q, requestID).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", domain.ErrRequestNotFound
	}
	if err != nil {
		return "", err
	}
	return status, nil
}
