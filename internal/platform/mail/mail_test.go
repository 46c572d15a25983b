// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"errors"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSender fails with each error in order, then succeeds.
type scriptedSender struct {
	mu       sync.Mutex
	failures []error
	sent     []Message
}

func (sender *scriptedSender) Send(_ context.Context, message Message) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	if len(sender.failures) > 0 {
		err := sender.failures[0]
		sender.failures = sender.failures[1:]
		return err
	}
	sender.sent = append(sender.sent, message)
	return nil
}

var fastPolicy = Policy{MaxRetries: 3, Delay: time.Millisecond}

func TestActivationMessage(t *testing.T) {
	message := ActivationMessage("ana@example.com", "https://app.example.com/verify-email/?token=abc")

	assert.Equal(t, "ana@example.com", message.To)
	assert.Equal(t, "Account activation", message.Subject)
	assert.Equal(t, "Activate your account: https://app.example.com/verify-email/?token=abc", message.Body)
}

func TestDeliver_FirstAttempt(t *testing.T) {
	sender := &scriptedSender{}

	result := Deliver(context.Background(), sender, ActivationMessage("a@example.com", "l"), fastPolicy)

	assert.Equal(t, Delivered, result.Outcome)
	assert.Equal(t, 1, result.Attempts)
	assert.NoError(t, result.Err)
	assert.Len(t, sender.sent, 1)
}

func TestDeliver_RecoversFromTransientFailures(t *testing.T) {
	transient := errors.New("connection reset")
	sender := &scriptedSender{failures: []error{transient, transient}}

	result := Deliver(context.Background(), sender, ActivationMessage("a@example.com", "l"), fastPolicy)

	assert.Equal(t, Delivered, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
}

func TestDeliver_ExhaustsRetries(t *testing.T) {
	transient := errors.New("relay unavailable")
	sender := &scriptedSender{failures: []error{transient, transient, transient, transient, transient}}

	result := Deliver(context.Background(), sender, ActivationMessage("a@example.com", "l"), fastPolicy)

	assert.Equal(t, Exhausted, result.Outcome)
	assert.Equal(t, 4, result.Attempts, "one attempt plus three retries")
	assert.ErrorIs(t, result.Err, transient)
	assert.Empty(t, sender.sent)
}

func TestDeliver_PermanentFailureStopsImmediately(t *testing.T) {
	rejected := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	sender := &scriptedSender{failures: []error{rejected}}

	result := Deliver(context.Background(), sender, ActivationMessage("a@example.com", "l"), fastPolicy)

	assert.Equal(t, Exhausted, result.Outcome)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, IsPermanent(result.Err))
}

func TestDeliver_CancelledContextIsRetryable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Deliver(ctx, &scriptedSender{}, ActivationMessage("a@example.com", "l"), fastPolicy)

	assert.Equal(t, Retryable, result.Outcome)
	assert.Equal(t, 0, result.Attempts)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(&textproto.Error{Code: 554, Msg: "rejected"}))
	assert.False(t, IsPermanent(&textproto.Error{Code: 421, Msg: "try later"}))
	assert.False(t, IsPermanent(errors.New("timeout")))
}

func TestCompose(t *testing.T) {
	raw := string(compose("noreply@example.com", Message{
		To:      "ana@example.com\r\nBcc: evil@example.com",
		Subject: ActivationSubject,
		Body:    "line one\nline two",
	}))

	headers, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)

	assert.Contains(t, headers, "From: noreply@example.com\r\n")
	assert.Contains(t, headers, "To: ana@example.comBcc: evil@example.com\r\n")
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.Contains(t, headers, "Subject: Account activation\r\n")
	assert.Equal(t, "line one\r\nline two\r\n", body)
}
