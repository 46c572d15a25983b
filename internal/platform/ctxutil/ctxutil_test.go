// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
	"github.com/taibuivan/resumehub/internal/platform/sec"
)

/*
TestContext_StringValues checks that request ID and client IP live under
separate keys even though both are strings.
*/
func TestContext_StringValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.GetRequestID(ctx))
	assert.Empty(t, ctxutil.GetClientIP(ctx))

	ctx = ctxutil.WithRequestID(ctx, "req-1")
	assert.Empty(t, ctxutil.GetClientIP(ctx))

	ctx = ctxutil.WithClientIP(ctx, "203.0.113.7")
	assert.Equal(t, "req-1", ctxutil.GetRequestID(ctx))
	assert.Equal(t, "203.0.113.7", ctxutil.GetClientIP(ctx))
}

/*
TestContext_Logger falls back to the default logger until one is attached.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Same(t, logger, ctxutil.GetLogger(ctx))

	// A nil logger never escapes.
	ctx = ctxutil.WithLogger(ctx, nil)
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))
}

/*
TestContext_AuthUser stores verified access token claims.
*/
func TestContext_AuthUser(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.GetAuthUser(ctx))

	ctx = ctxutil.WithAuthUser(ctx, &sec.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
		Roles:            []string{"admin"},
	})

	retrieved := ctxutil.GetAuthUser(ctx)
	require.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.UserID())
	assert.True(t, retrieved.HasRole(sec.RoleAdmin))
}
