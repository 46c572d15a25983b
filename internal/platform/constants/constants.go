// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants holds the fixed values of the auth service: service
identity, HTTP timing, limiter tuning, cookie and header names, and the Redis
key taxonomy.

Anything an operator may want to tune lives in [config] instead.
*/
package constants

import "time"

// # Identity

const (
	AppName    = "resumehub-auth"
	AppVersion = "0.1.0-dev"

	// AuthIssuer is the 'iss' claim stamped on and required from every JWT.
	AuthIssuer = "resumehub.auth"
)

// # HTTP Server

const (
	DefaultReadHeaderTimeout = 2 * time.Second
	DefaultReadTimeout       = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute

	// GlobalRequestTimeout bounds a whole request, and every SQL statement.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout applies to the HTTP server and the queue worker alike.
	ShutdownTimeout = 30 * time.Second
)

// # Limiters

const (
	// Global token bucket, one per client IP.
	DefaultRateLimitRPS   = 100.0
	DefaultRateLimitBurst = 150

	// Idle buckets are swept every RateLimitCleanupInterval once they have
	// been unused for RateLimitClientTTL.
	RateLimitCleanupInterval = time.Minute
	RateLimitClientTTL       = 3 * time.Minute

	// Register and verify-email share a per-IP sliding window.
	AuthWriteRateLimit  = 20
	AuthWriteRateWindow = time.Minute
)

// # Refresh Cookie

const (
	RefreshTokenCookieName = "refresh_token"
	RefreshTokenCookiePath = "/"

	// TokenTypeBearer is the token_type of every issued pair.
	TokenTypeBearer = "bearer"
)

// # Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXRequestID    = "X-Request-ID"
)

// # Response Fields

const (
	FieldDetail  = "detail"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Keys
//
// Every key written by the service starts with one of these prefixes.

const (
	RedisPrefixRefreshBlacklist = "auth:refresh_blacklist:"
	RedisPrefixLoginAttempts    = "auth:login_attempts:"
	RedisPrefixLoginBlocked     = "auth:login_blocked:"
)

// QueueDefault is the asynq queue carrying activation emails.
const QueueDefault = "default"
