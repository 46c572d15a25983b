// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command worker consumes the activation email queue and delivers each
// message over SMTP with a bounded retry policy.
//
// # Startup Sequence
//
//  1. Load configuration (SMTP settings are required here).
//  2. Initialize structured logger.
//  3. Build the SMTP sender and the asynq worker.
//  4. Process tasks until SIGINT or SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/resumehub/internal/jobs"
	"github.com/taibuivan/resumehub/internal/platform/config"
	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/mail"
	redisstore "github.com/taibuivan/resumehub/internal/platform/redis"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Error("startup failure", slog.String("context", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName+"-worker"))
	slog.SetDefault(log)

	queueOpts, err := redisstore.QueueOptions(cfg.RedisURL)
	if err != nil {
		log.Error("startup failure", slog.String("context", "configure mail queue"), slog.Any("error", err))
		os.Exit(1)
	}

	sender := mail.NewSMTPSender(cfg.SMTP())

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:       queueOpts,
		Concurrency:     cfg.WorkerConcurrency,
		ShutdownTimeout: constants.ShutdownTimeout,
		Logger:          log,
		Activation:      jobs.NewActivationHandler(sender, cfg.MailPolicy(), log),
	})
	if err != nil {
		log.Error("startup failure", slog.String("context", "build worker"), slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("worker_starting",
		slog.String("queue", constants.QueueDefault),
		slog.Int("concurrency", cfg.WorkerConcurrency),
		slog.Int("mail_max_retries", cfg.MailMaxRetries),
	)

	if err := worker.Run(ctx); err != nil {
		log.Error("worker_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("worker stopped cleanly")
}
