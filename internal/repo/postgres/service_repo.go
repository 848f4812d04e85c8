package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonmarlowe/bookings/internal/domain"
)

type ServiceRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Service, error)
	ListActive(ctx context.Context) ([]domain.Service, error)
}

type serviceRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRepository(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepository{pool: pool}
}

const serviceCols = `id, name, duration_minutes, price, max_concurrent, is_active, created_at`

func (r *serviceRepository) FindByID(ctx context.Context, id int64) (*domain.Service, error) {
	const q = `SELECT ` + serviceCols + ` FROM services WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Service
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.MaxConcurrent, &s.IsActive, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

func (r *serviceRepository) ListActive(ctx context.Context) ([]domain.Service, error) {
	const q = `SELECT ` + serviceCols + ` FROM services WHERE is_active ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(
			&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.MaxConcurrent, &s.IsActive, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
