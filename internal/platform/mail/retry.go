// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"errors"
	"net/textproto"
	"time"

	"github.com/sethvargo/go-retry"
)

// Outcome classifies how a delivery ended.
type Outcome int

const (
	// Delivered means the relay accepted the message.
	Delivered Outcome = iota
	// Retryable means the last failure was transient and the loop was
	// interrupted before its budget ran out. The caller may requeue.
	Retryable
	// Exhausted means the relay refused permanently or every retry failed.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Retryable:
		return "retryable"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Policy bounds the retry loop.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultPolicy retries three times, one minute apart.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, Delay: time.Minute}
}

// Result reports the outcome of [Deliver].
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

/*
Deliver sends message, retrying transient failures with a constant delay.

Permanent SMTP replies (5xx) stop the loop at once. Cancelling ctx stops it
between attempts and yields [Retryable].

Parameters:
  - ctx: Bounds the whole loop, including waits.
  - sender: Performs each attempt.
  - message: The email to send.
  - policy: Number of retries after the first attempt and the delay between them.

Returns:
  - Result: Outcome, number of attempts made, and the last error.
*/
func Deliver(ctx context.Context, sender Sender, message Message, policy Policy) Result {
	delay := policy.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	retries := policy.MaxRetries
	if retries < 0 {
		retries = 0
	}

	backoff := retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay))

	attempts := 0
	var lastErr error

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++
		if err := sender.Send(ctx, message); err != nil {
			lastErr = err
			if IsPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})

	switch {
	case err == nil:
		return Result{Outcome: Delivered, Attempts: attempts}
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		if lastErr == nil {
			lastErr = err
		}
		return Result{Outcome: Retryable, Attempts: attempts, Err: lastErr}
	default:
		return Result{Outcome: Exhausted, Attempts: attempts, Err: err}
	}
}

// IsPermanent reports whether err is an SMTP reply in the 5xx range.
func IsPermanent(err error) bool {
	var protocolErr *textproto.Error
	return errors.As(err, &protocolErr) && protocolErr.Code >= 500
}
