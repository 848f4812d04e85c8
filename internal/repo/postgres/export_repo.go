package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExportRepository dumps the core tables for the admin export endpoint. Rows
// come back as generic maps so new columns show up without code changes.
type ExportRepository interface {
	Export(ctx context.Context) (map[string][]map[string]any, error)
}

type exportRepository struct {
	pool *pgxpool.Pool
}

func NewExportRepository(pool *pgxpool.Pool) ExportRepository {
	return &exportRepository{pool: pool}
}

var exportTables = map[string]string{
	"customers":            `SELECT id, name, email, phone, created_at, updated_at FROM customers ORDER BY id`,
	"services":             `SELECT id, name, duration_minutes, price, max_concurrent, is_active, created_at FROM services ORDER BY id`,
	"appointment_requests": `SELECT id, customer_id, service_id, status, customer_notes, admin_notes, suggested_at, created_at, updated_at FROM appointment_requests WHERE deleted_at IS NULL ORDER BY id`,
	"time_preferences":     `SELECT id, request_id, requested_at, priority, selected FROM time_preferences ORDER BY id`,
	"appointments":         `SELECT id, request_id, preference_id, customer_id, service_id, scheduled_at, duration_minutes, status, created_at FROM appointments ORDER BY id`,
}

func (r *exportRepository) Export(ctx context.Context) (map[string][]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out := make(map[string][]map[string]any, len(exportTables))
	for table, q := range exportTables {
		rows, err := r.pool.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		records, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, err
		}
		out[table] = records
	}
	return out, nil
}
