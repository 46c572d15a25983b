// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taibuivan/resumehub/internal/platform/constants"
)

// Worker wraps the asynq server that consumes activation emails.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts       asynq.RedisConnOpt
	Concurrency     int
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
	Activation      *ActivationHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Activation == nil {
		return nil, errors.New("jobs: activation handler is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	server := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{constants.QueueDefault: 1},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          &asynqLogger{logger: cfg.Logger},
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeActivationEmail, cfg.Activation)

	return &Worker{server: server, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start worker: %w", err)
	}
	w.logger.Info("worker_started", slog.String("queue", constants.QueueDefault))

	<-ctx.Done()

	w.logger.Info("worker_stopping")
	w.server.Shutdown()
	return nil
}

// asynqLogger routes asynq's internal logs through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
