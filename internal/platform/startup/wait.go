// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package startup waits for the service's backing stores to accept connections.

PostgreSQL and Redis often come up after the API container in local and CI
environments. Instead of failing on the first refused dial, each dependency is
probed with a capped exponential backoff for a bounded number of attempts.
*/
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds how long a dependency is waited for.
type Policy struct {
	// Attempts is the total number of probes, including the first one.
	Attempts uint64
	// BaseDelay is the wait after the first failure. It doubles each time.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
}

// DefaultPolicy probes five times over roughly seven seconds.
func DefaultPolicy() Policy {
	return Policy{Attempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

func (p Policy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	backoff := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(p.MaxDelay, backoff)
	}
	return retry.WithMaxRetries(attempts-1, backoff)
}

/*
WaitFor calls probe until it succeeds, the policy is exhausted or ctx ends.

Parameters:
  - ctx: context.Context (cancelling it aborts the wait)
  - name: string (dependency name used in logs, e.g. "postgres")
  - policy: Policy
  - logger: *slog.Logger
  - probe: func(context.Context) error

Returns:
  - error: The last probe error wrapped with name, or ctx.Err()
*/
func WaitFor(ctx context.Context, name string, policy Policy, logger *slog.Logger, probe func(context.Context) error) error {
	attempt := 0

	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempt++
		if err := probe(ctx); err != nil {
			logger.Warn("dependency_unavailable",
				slog.String("dependency", name),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("startup: %s not reachable after %d attempt(s): %w", name, attempt, err)
	}

	if attempt > 1 {
		logger.Info("dependency_available", slog.String("dependency", name), slog.Int("attempts", attempt))
	}
	return nil
}
