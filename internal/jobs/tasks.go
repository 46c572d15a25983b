// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package jobs moves account activation email off the request path.

Two dispatchers satisfy the auth service's dispatch port:

  - [Client] enqueues an asynq task consumed by cmd/worker.
  - [InlineDispatcher] delivers from a detached goroutine inside the API process.

Both end in [mail.Deliver], so the retry policy is the same either way.
*/
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/taibuivan/resumehub/internal/platform/mail"
)

// TaskTypeActivationEmail is the asynq task type for activation emails.
const TaskTypeActivationEmail = "mail:activation"

// ActivationPayload is the task body.
type ActivationPayload struct {
	Email string `json:"email"`
	Link  string `json:"link"`
}

// NewActivationTask encodes payload as an asynq task.
func NewActivationTask(payload ActivationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode activation payload: %w", err)
	}
	return asynq.NewTask(TaskTypeActivationEmail, data), nil
}

// # Task Handling

// ActivationHandler processes [TaskTypeActivationEmail] tasks.
type ActivationHandler struct {
	sender mail.Sender
	policy mail.Policy
	logger *slog.Logger
}

// NewActivationHandler wires the sender and retry policy.
func NewActivationHandler(sender mail.Sender, policy mail.Policy, logger *slog.Logger) *ActivationHandler {
	return &ActivationHandler{sender: sender, policy: policy, logger: logger}
}

/*
ProcessTask implements asynq.Handler.

Returns:
  - nil when delivered.
  - An error wrapping asynq.SkipRetry for bad payloads and exhausted deliveries.
  - The last send error when delivery was interrupted, so asynq requeues it.
*/
func (handler *ActivationHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload ActivationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		handler.logger.Error("activation_payload_invalid", slog.Any("error", err))
		return fmt.Errorf("jobs: decode activation payload: %v: %w", err, asynq.SkipRetry)
	}

	result := deliverActivation(ctx, handler.sender, handler.policy, handler.logger, payload)

	switch result.Outcome {
	case mail.Delivered:
		return nil
	case mail.Retryable:
		return result.Err
	default:
		return fmt.Errorf("jobs: activation email to %s: %v: %w", payload.Email, result.Err, asynq.SkipRetry)
	}
}

func deliverActivation(ctx context.Context, sender mail.Sender, policy mail.Policy, logger *slog.Logger, payload ActivationPayload) mail.Result {
	result := mail.Deliver(ctx, sender, mail.ActivationMessage(payload.Email, payload.Link), policy)

	attrs := []any{
		slog.String("to", payload.Email),
		slog.String("outcome", result.Outcome.String()),
		slog.Int("attempts", result.Attempts),
	}

	switch result.Outcome {
	case mail.Delivered:
		logger.Info("activation_email_sent", attrs...)
	case mail.Retryable:
		logger.Warn("activation_email_interrupted", append(attrs, slog.Any("error", result.Err))...)
	default:
		logger.Error("activation_email_failed", append(attrs, slog.Any("error", result.Err))...)
	}

	return result
}
