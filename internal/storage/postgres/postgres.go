// Package postgres persists orphaned items to PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tilemud/internal/config"
)

// ApplicationName tags ledger connections in pg_stat_activity.
const ApplicationName = "tilemud"

// connectTimeout bounds the initial ping.
const connectTimeout = 5 * time.Second

// ErrSchemaMissing means the migrations have not been applied.
var ErrSchemaMissing = errors.New("orphaned_items table missing; run cmd/migrate")

// Pool owns the connection pool behind the orphan ledger.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg and pings it.
//
// Precondition: cfg must pass config validation.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// CheckSchema verifies that the ledger table exists.
//
// Postcondition: Returns ErrSchemaMissing when the migrations were not run.
func (p *Pool) CheckSchema(ctx context.Context) error {
	var present bool
	err := p.pool.QueryRow(ctx, `SELECT to_regclass('orphaned_items') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !present {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
