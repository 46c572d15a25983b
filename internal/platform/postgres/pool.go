// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres provides the managed PostgreSQL connection pool that backs
// the credential store.
//
// # Architecture
//
// This package is part of the Infrastructure layer. It owns the physical
// database connections (pgxpool); repositories receive the pool through
// their constructors.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/resumehub/internal/platform/startup"
)

// Fixed pool timings. Sizes come from [Options].
const (
	maxConnLifetime   = 60 * time.Minute
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = 1 * time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// Options configures [NewPool].
type Options struct {
	DSN      string
	MaxConns int32
	MinConns int32

	// StatementTimeout is applied to every session. Zero leaves the server default.
	StatementTimeout time.Duration

	// Startup bounds how long NewPool waits for the server to accept connections.
	Startup startup.Policy
}

/*
Config translates opts into a [pgxpool.Config].

Every new session is pinned to UTC and, when set, gets a statement_timeout.

Returns:
  - *pgxpool.Config: Ready for pgxpool.NewWithConfig
  - error: Malformed DSN
*/
func (opts Options) Config() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = opts.MinConns
	}
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	runtimeParams := poolConfig.ConnConfig.RuntimeParams
	runtimeParams["timezone"] = "UTC"
	if opts.StatementTimeout > 0 {
		runtimeParams["statement_timeout"] = fmt.Sprintf("%d", opts.StatementTimeout.Milliseconds())
	}

	return poolConfig, nil
}

// NewPool creates the pool and waits until the server answers a ping.
//
// # Parameters
//   - ctx: Context for the startup wait.
//   - opts: Pool sizing and DSN.
//   - logger: Structured logger for pool-level events.
func NewPool(ctx context.Context, opts Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := opts.Config()
	if err != nil {
		return nil, err
	}

	// pgxpool connects lazily, so creating the pool does not touch the network.
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := startup.WaitFor(ctx, "postgres", opts.Startup, logger, func(ctx context.Context) error {
		return Ping(ctx, pool)
	}); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres pool connected",
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
	)

	return pool, nil
}

// Ping verifies that the PostgreSQL connection pool is healthy.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}
