package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonmarlowe/bookings/internal/domain"
)

type AppointmentRepository interface {
	List(ctx context.Context, from, to *time.Time, limit, offset int) ([]domain.Appointment, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentCols = `id, request_id, preference_id, customer_id, service_id,
scheduled_at, duration_minutes, status, created_at`

func (r *appointmentRepository) List(ctx context.Context, from, to *time.Time, limit, offset int) ([]domain.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + appointmentCols + ` FROM appointments WHERE true`
	args := []any{}
	if from != nil {
		args = append(args, *from)
		q += ` AND scheduled_at >= $` + strconv.Itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		q += ` AND scheduled_at < $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	q += ` ORDER BY scheduled_at LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	q += ` OFFSET $` + strconv.Itoa(len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(
			&a.ID, &a.RequestID, &a.PreferenceID, &a.CustomerID, &a.ServiceID,
			&a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}
