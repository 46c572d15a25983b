// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsConfig(t *testing.T) {
	poolConfig, err := Options{
		DSN:              "postgres://auth:secret@db:5432/auth?sslmode=disable",
		MaxConns:         12,
		MinConns:         3,
		StatementTimeout: 30 * time.Second,
	}.Config()
	require.NoError(t, err)

	assert.Equal(t, int32(12), poolConfig.MaxConns)
	assert.Equal(t, int32(3), poolConfig.MinConns)
	assert.Equal(t, "auth", poolConfig.ConnConfig.Database)
	assert.Equal(t, "UTC", poolConfig.ConnConfig.RuntimeParams["timezone"])
	assert.Equal(t, "30000", poolConfig.ConnConfig.RuntimeParams["statement_timeout"])
	assert.Equal(t, connectTimeout, poolConfig.ConnConfig.ConnectTimeout)
}

func TestOptionsConfig_MinAboveMaxIgnored(t *testing.T) {
	poolConfig, err := Options{DSN: "postgres://auth@db/auth", MaxConns: 2, MinConns: 5}.Config()
	require.NoError(t, err)

	assert.Equal(t, int32(2), poolConfig.MaxConns)
	assert.LessOrEqual(t, poolConfig.MinConns, poolConfig.MaxConns)
	assert.NotContains(t, poolConfig.ConnConfig.RuntimeParams, "statement_timeout")
}

func TestOptionsConfig_InvalidDSN(t *testing.T) {
	_, err := Options{DSN: "postgres://%zz"}.Config()
	assert.ErrorContains(t, err, "invalid DSN")
}
