// Package durablestore provides typed pgx/pgxpool-backed access to the
// relational store: the rank_table_config table and the per-leaderboard
// rank_{appid}_{rank_key} tables. It is the authoritative store; the index
// store is a latency cache rebuilt from it.
package durablestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rankvault/leaderboard-service/internal/metrics"
)

// PoolConfig configures one pgxpool.Pool.
type PoolConfig struct {
	// Name labels this pool for metrics, e.g. "master" or "replica".
	Name string
	DSN  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// Pool wraps a pgxpool.Pool with metrics and a name for logging.
type Pool struct {
	name    string
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *metrics.PoolMetrics
}

// Connect opens the pool and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn for pool %q: %w", cfg.Name, err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pgxPool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		metrics.NewPoolMetrics().Errors.WithLabelValues(cfg.Name, "connect").Inc()
		return nil, fmt.Errorf("create pool %q: %w", cfg.Name, err)
	}

	if err := pgxPool.Ping(connectCtx); err != nil {
		pgxPool.Close()
		metrics.NewPoolMetrics().Errors.WithLabelValues(cfg.Name, "ping").Inc()
		return nil, fmt.Errorf("ping pool %q: %w", cfg.Name, err)
	}

	logger.Info("connected to durable store", "pool", cfg.Name, "max_conns", cfg.MaxConns)

	return &Pool{
		name:    cfg.Name,
		pool:    pgxPool,
		logger:  logger,
		metrics: metrics.NewPoolMetrics(),
	}, nil
}

// Close releases all connections held by the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// Raw returns the underlying pgxpool.Pool for use by Store.
func (p *Pool) Raw() *pgxpool.Pool {
	return p.pool
}

// reportStats refreshes the pool's Prometheus gauges from pgxpool's own stats.
func (p *Pool) reportStats() {
	stat := p.pool.Stat()
	p.metrics.TotalConns.WithLabelValues(p.name).Set(float64(stat.TotalConns()))
	p.metrics.AcquiredConns.WithLabelValues(p.name).Set(float64(stat.AcquiredConns()))
	p.metrics.IdleConns.WithLabelValues(p.name).Set(float64(stat.IdleConns()))
}
