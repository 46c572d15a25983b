// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil carries per-request values through [context.Context]:
// the request ID, the resolved client address, the request-scoped logger and
// the verified access token claims.
//
// Keys are values of an unexported generic type, so no other package can
// read or overwrite them, and every lookup is typed.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/resumehub/internal/platform/sec"
)

type key[T any] struct{ name string }

func (k key[T]) with(ctx context.Context, value T) context.Context {
	return context.WithValue(ctx, k, value)
}

func (k key[T]) get(ctx context.Context) (T, bool) {
	value, ok := ctx.Value(k).(T)
	return value, ok
}

var (
	requestIDKey = key[string]{name: "request_id"}
	clientIPKey  = key[string]{name: "client_ip"}
	loggerKey    = key[*slog.Logger]{name: "logger"}
	authUserKey  = key[*sec.Claims]{name: "auth_user"}
)

// # Request Tracing

// WithRequestID attaches the X-Request-ID correlation value.
func WithRequestID(ctx context.Context, id string) context.Context {
	return requestIDKey.with(ctx, id)
}

// GetRequestID returns the request ID, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := requestIDKey.get(ctx)
	return id
}

// WithClientIP attaches the address login attempts are counted against.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return clientIPKey.with(ctx, ip)
}

// GetClientIP returns the client address, or "" if none was resolved.
func GetClientIP(ctx context.Context) string {
	ip, _ := clientIPKey.get(ctx)
	return ip
}

// # Structured Logging

// WithLogger attaches a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return loggerKey.with(ctx, logger)
}

// GetLogger returns the request logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := loggerKey.get(ctx); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Identity & Access

// WithAuthUser attaches verified access token claims.
func WithAuthUser(ctx context.Context, claims *sec.Claims) context.Context {
	return authUserKey.with(ctx, claims)
}

// GetAuthUser returns the verified claims, or nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.Claims {
	claims, _ := authUserKey.get(ctx)
	return claims
}
