// Package database owns the pgx/v5 connection pool, schema migrations, and
// the repository layer behind internal/trigger.Store, internal/workflow.Store,
// and internal/events.CatchupQuerier. Grounded on codeready-toolchain-tarsy's
// pkg/database (client.go/config.go/health.go/migrations.go), adapted from
// tarsy's database/sql+ent-driver pool setup to a direct pgxpool.Pool —
// ent's generated client is not used here (see DESIGN.md's persistence
// decision); entgo.io/ent stays wired via the hand-authored schema
// definitions under ent/schema.
package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used only for migrations

	"github.com/orbitflow/orbitflow/internal/config"
)

// Pool wraps a pgxpool.Pool with the lifecycle helpers orbitflowd needs at
// startup (connect, migrate, health-check) and shutdown (close).
type Pool struct {
	*pgxpool.Pool
}

// Connect opens a pgx connection pool against cfg.DSN, applies pool-size
// and connect-timeout settings, runs pending migrations, and verifies
// connectivity with a ping before returning.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeoutSec > 0 {
		poolCfg.ConnConfig.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(cfg.DSN, cfg.MigrationsPath); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// NewFromPool wraps an already-constructed pgxpool.Pool without touching
// migrations or connectivity — used by tests that hand in a pool pointed at
// a testcontainers-managed Postgres instance that has already been migrated.
func NewFromPool(pool *pgxpool.Pool) *Pool {
	return &Pool{Pool: pool}
}

// sqlDBForMigration opens a short-lived database/sql handle over the pgx
// stdlib driver purely so golang-migrate's postgres driver (which only
// accepts *sql.DB) can run against the same DSN as the pool above. It is
// closed as soon as migrations finish; all runtime traffic goes through the
// pgxpool.Pool, never through this handle.
func sqlDBForMigration(dsn string) (*stdsql.DB, error) {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening migration handle: %w", err)
	}
	return db, nil
}
