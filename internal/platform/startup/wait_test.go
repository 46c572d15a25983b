// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package startup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	quiet      = slog.New(slog.NewTextHandler(io.Discard, nil))
	fastPolicy = Policy{Attempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	errRefused = errors.New("connection refused")
)

func TestWaitFor_FirstProbe(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), "redis", fastPolicy, quiet, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWaitFor_RecoversBeforeExhaustion(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), "postgres", fastPolicy, quiet, func(context.Context) error {
		calls++
		if calls < 3 {
			return errRefused
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitFor_Exhausted(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), "postgres", fastPolicy, quiet, func(context.Context) error {
		calls++
		return errRefused
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errRefused)
	assert.Contains(t, err.Error(), "postgres")
	assert.Equal(t, 4, calls)
}

func TestWaitFor_ZeroAttemptsProbesOnce(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), "redis", Policy{}, quiet, func(context.Context) error {
		calls++
		return errRefused
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
