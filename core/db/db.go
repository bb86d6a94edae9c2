package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itsnaseer/slackbrix/core/db/sqlc"
)

const (
	defaultMaxConns        = 10
	defaultMinConns        = 2
	defaultMaxConnLifetime = 30 * time.Minute
)

// DB owns the pgx pool behind the installation store.
type DB struct {
	pool *pgxpool.Pool
}

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// AppName shows up in pg_stat_activity so server and worker
	// connections can be told apart.
	AppName string
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	if c.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	poolCfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}

	poolCfg.MaxConns = orDefault(c.MaxConns, defaultMaxConns)
	poolCfg.MinConns = min(orDefault(c.MinConns, defaultMinConns), poolCfg.MaxConns)
	poolCfg.MaxConnLifetime = orDefault(c.MaxConnLifetime, defaultMaxConnLifetime)
	if c.AppName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = c.AppName
	}
	return poolCfg, nil
}

// New opens the pool and fails fast if postgres is unreachable.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Ping backs the postgres readiness check.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Queries() *sqlc.Queries {
	return sqlc.New(db.pool)
}

func orDefault[T int32 | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}
