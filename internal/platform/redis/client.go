// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides a managed client for volatile data storage.

The auth service keeps its refresh token blacklist and login attempt counters
here. Every key it writes carries a TTL, so Redis is the only place that state
lives and it cleans itself up.

Core Responsibilities:

  - Lifecycle: one client, created in main, closed on shutdown.
  - Startup: waits for the server with a bounded backoff.
  - Queue wiring: the same URL configures the asynq mail queue.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/resumehub/internal/platform/startup"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// Options configures [NewClient].
type Options struct {
	URL      string
	PoolSize int
	Startup  startup.Policy
}

// ClientOptions parses the URL and applies pool sizing and timeouts.
func (opts Options) ClientOptions() (*redis.Options, error) {
	options, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	if opts.PoolSize > 0 {
		options.PoolSize = opts.PoolSize
		options.MinIdleConns = max(1, opts.PoolSize/5)
		options.MaxIdleConns = max(1, opts.PoolSize/2)
	}
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	return options, nil
}

// NewClient returns a client once the server answers PING.
//
// # Parameters
//   - context: Context for the startup wait.
//   - opts: URL and pool sizing.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, opts Options, logger *slog.Logger) (*redis.Client, error) {
	options, err := opts.ClientOptions()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)

	if err := startup.WaitFor(context, "redis", opts.Startup, logger, func(ctx stdctx.Context) error {
		return Ping(ctx, client)
	}); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// QueueOptions converts a Redis URL into asynq connection options.
func QueueOptions(redisURL string) (asynq.RedisConnOpt, error) {
	options, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid queue URL: %w", err)
	}
	return options, nil
}
