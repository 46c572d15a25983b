// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/resumehub/internal/platform/constants"
)

// # Refresh Token Blacklist

// RedisTokenBlacklist implements TokenBlacklist using Redis.
//
// Keys hold a SHA-256 digest of the token, never the token itself, and expire
// together with the token they describe.
type RedisTokenBlacklist struct {
	client redis.UniversalClient
}

// NewTokenBlacklist creates a new Redis-backed TokenBlacklist.
func NewTokenBlacklist(client redis.UniversalClient) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

/*
Blacklist records token with SET NX so concurrent callers race on one key.

Parameters:
  - context: context.Context
  - token: string (raw refresh token)
  - ttl: time.Duration (remaining token lifetime; non-positive is a no-op)

Returns:
  - bool: true if this call created the entry
  - error: Execution errors
*/
func (repository *RedisTokenBlacklist) Blacklist(context context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	created, err := repository.client.SetNX(context, blacklistKey(token), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_blacklist_set_failed: %w", err)
	}
	return created, nil
}

// IsBlacklisted reports whether token has already been spent.
func (repository *RedisTokenBlacklist) IsBlacklisted(context context.Context, token string) (bool, error) {
	count, err := repository.client.Exists(context, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_blacklist_exists_failed: %w", err)
	}
	return count > 0, nil
}

func blacklistKey(token string) string {
	digest := sha256.Sum256([]byte(token))
	return constants.RedisPrefixRefreshBlacklist + hex.EncodeToString(digest[:])
}

// # Login Attempt Guard

// recordFailureScript increments the attempt counter, starts its TTL on the
// first failure, and swaps it for a block flag once the threshold is hit.
//
// KEYS[1] attempts key, KEYS[2] block key
// ARGV[1] max attempts, ARGV[2] lockout in milliseconds
var recordFailureScript = redis.NewScript(`
local attempts = redis.call('INCR', KEYS[1])
if attempts == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if attempts >= tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[2])
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

// RedisLoginGuard implements LoginGuard using Redis.
type RedisLoginGuard struct {
	client redis.UniversalClient
}

// NewLoginGuard creates a new Redis-backed LoginGuard.
func NewLoginGuard(client redis.UniversalClient) *RedisLoginGuard {
	return &RedisLoginGuard{client: client}
}

// IsBlocked reports whether key is currently locked out in scope.
func (repository *RedisLoginGuard) IsBlocked(context context.Context, scope Scope, key string) (bool, error) {
	count, err := repository.client.Exists(context, blockedKey(scope, key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_login_guard_exists_failed: %w", err)
	}
	return count > 0, nil
}

// RetryAfter returns the remaining lockout, or zero if key is not blocked.
func (repository *RedisLoginGuard) RetryAfter(context context.Context, scope Scope, key string) (time.Duration, error) {
	remaining, err := repository.client.PTTL(context, blockedKey(scope, key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_login_guard_pttl_failed: %w", err)
	}
	if remaining <= 0 {
		return 0, nil
	}
	return remaining, nil
}

/*
RecordFailure counts one failed login for key in scope.

Description: Runs as a single script so the increment, the first-failure TTL
and the swap to a block flag cannot interleave with another request.

Returns:
  - bool: true if this failure triggered the lockout
  - error: Execution errors
*/
func (repository *RedisLoginGuard) RecordFailure(context context.Context, scope Scope, key string) (bool, error) {
	blocked, err := recordFailureScript.Run(context, repository.client,
		[]string{attemptsKey(scope, key), blockedKey(scope, key)},
		scope.MaxAttempts, scope.Lockout.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis_login_guard_record_failed: %w", err)
	}
	return blocked == 1, nil
}

// Reset removes both the counter and the block flag.
func (repository *RedisLoginGuard) Reset(context context.Context, scope Scope, key string) error {
	if err := repository.client.Del(context, attemptsKey(scope, key), blockedKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis_login_guard_reset_failed: %w", err)
	}
	return nil
}

func attemptsKey(scope Scope, key string) string {
	return constants.RedisPrefixLoginAttempts + scope.Name + ":" + key
}

func blockedKey(scope Scope, key string) string {
	return constants.RedisPrefixLoginBlocked + scope.Name + ":" + key
}
