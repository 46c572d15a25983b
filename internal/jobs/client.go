// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/taibuivan/resumehub/internal/platform/constants"
)

// maxQueueRetries covers deliveries interrupted by a worker shutdown.
// Ordinary SMTP retries happen inside the task.
const maxQueueRetries = 3

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits activation emails to the queue.
type Client struct {
	client enqueuer
	closer func() error
}

// NewClient constructs an asynq-backed dispatcher.
func NewClient(redisOpts asynq.RedisConnOpt) *Client {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client, closer: client.Close}
}

// DispatchActivation enqueues the activation email and returns once Redis has it.
func (c *Client) DispatchActivation(ctx context.Context, email, link string) error {
	task, err := NewActivationTask(ActivationPayload{Email: email, Link: link})
	if err != nil {
		return err
	}

	if _, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(constants.QueueDefault),
		asynq.MaxRetry(maxQueueRetries),
	); err != nil {
		return fmt.Errorf("jobs: enqueue activation email: %w", err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
