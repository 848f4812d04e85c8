package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonmarlowe/bookings/pkg/config"
)

// Connect builds a pgx pool from configuration. The pool is the only shared
// database handle in the process; callers own its lifecycle and must Close it
// on shutdown.
func Connect(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, err
	}

	cfg.MinConns = dbCfg.MinConns
	cfg.MaxConns = dbCfg.MaxConns
	cfg.MaxConnLifetime = dbCfg.MaxLifetime
	cfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.NewWithConfig(ctx, cfg)
}
