// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package jobs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/resumehub/internal/platform/mail"
)

// InlineDispatcher delivers activation email from a background goroutine in
// the API process. Used when no worker is deployed.
type InlineDispatcher struct {
	sender   mail.Sender
	policy   mail.Policy
	logger   *slog.Logger
	inFlight sync.WaitGroup
}

// NewInlineDispatcher wires the sender and retry policy.
func NewInlineDispatcher(sender mail.Sender, policy mail.Policy, logger *slog.Logger) *InlineDispatcher {
	return &InlineDispatcher{sender: sender, policy: policy, logger: logger}
}

// DispatchActivation starts delivery and returns immediately. The request's
// cancellation does not reach the delivery.
func (dispatcher *InlineDispatcher) DispatchActivation(ctx context.Context, email, link string) error {
	detached := context.WithoutCancel(ctx)

	dispatcher.inFlight.Add(1)
	go func() {
		defer dispatcher.inFlight.Done()
		deliverActivation(detached, dispatcher.sender, dispatcher.policy, dispatcher.logger,
			ActivationPayload{Email: email, Link: link})
	}()

	return nil
}

// Wait blocks until every started delivery has finished.
func (dispatcher *InlineDispatcher) Wait() {
	dispatcher.inFlight.Wait()
}
