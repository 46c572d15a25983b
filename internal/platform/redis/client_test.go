// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/resumehub/internal/platform/startup"
)

var (
	quiet      = slog.New(slog.NewTextHandler(io.Discard, nil))
	fastPolicy = startup.Policy{Attempts: 2, BaseDelay: time.Millisecond}
)

func TestNewClient(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := NewClient(context.Background(), Options{
		URL:      "redis://" + server.Addr() + "/0",
		PoolSize: 10,
		Startup:  fastPolicy,
	}, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 10, client.Options().PoolSize)
	assert.Equal(t, 2, client.Options().MinIdleConns)
	assert.NoError(t, Ping(context.Background(), client))
}

func TestNewClient_Unreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewClient(context.Background(), Options{URL: "redis://" + addr, Startup: fastPolicy}, quiet)
	assert.ErrorContains(t, err, "redis not reachable after 2 attempt(s)")
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), Options{URL: "http://nope"}, quiet)
	assert.ErrorContains(t, err, "invalid URL")
}

func TestQueueOptions(t *testing.T) {
	options, err := QueueOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)

	clientOpt, ok := options.(asynq.RedisClientOpt)
	require.True(t, ok)
	assert.Equal(t, "cache:6380", clientOpt.Addr)
	assert.Equal(t, 2, clientOpt.DB)
	assert.Equal(t, "secret", clientOpt.Password)
}
