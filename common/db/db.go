package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/common/config"
	zerolog "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog/log"
)

// Writes to eventsTable are not traced: the event hook inserts there on
// every warning and would otherwise log its own inserts.
const eventsTable = "watcher_events"

const (
	connectTimeout    = 10 * time.Second
	maxConnLifetime   = 30 * time.Minute
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = time.Minute
)

// DB owns the connection pool holding watchers and their events.
type DB struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, errors.New("cannot use nil database pool")
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// SetupDatabase opens the pool and fails unless the server answers a ping
// within connectTimeout.
func SetupDatabase(ctx context.Context, cfg config.Config) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s: %w", cfg.PgSql.Database, err)
	}

	log.Info().
		Str("host", cfg.PgSql.Host).
		Str("database", cfg.PgSql.Database).
		Int32("maxConns", poolCfg.MaxConns).
		Msg("Connected to database")
	return New(pool)
}

func poolConfig(cfg config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PgSql.ConnStr())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.PgSql.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.PgSql.MaxConns)
	}
	poolCfg.MinConns = min(int32(cfg.PgSql.MinConns), poolCfg.MaxConns)
	poolCfg.MaxConnLifetime = maxConnLifetime
	poolCfg.MaxConnIdleTime = maxConnIdleTime
	poolCfg.HealthCheckPeriod = healthCheckPeriod

	poolCfg.ConnConfig.Tracer = NewFilteredTracer(&tracelog.TraceLog{
		Logger:   zerolog.NewLogger(log.Logger),
		LogLevel: tracelog.LogLevelInfo,
	}, eventsTable)
	return poolCfg, nil
}
