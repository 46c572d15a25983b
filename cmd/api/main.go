// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the ResumeHub authentication API server.
//
// # Startup Sequence
//
//  1. Load configuration from environment variables (and .env).
//  2. Initialize structured logger.
//  3. Connect to PostgreSQL (pgxpool), waiting for it to come up.
//  4. Connect to Redis, waiting likewise.
//  5. Run database migrations (idempotent).
//  6. Build the hasher and the token services.
//  7. Wire the activation email dispatcher (asynq queue or inline).
//  8. Build the health probes over postgres and redis.
//  9. Wire the stores, the auth service and its handler.
//  10. Build the HTTP server.
//  11. Serve until a signal or a server error, then shut down gracefully.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/resumehub/internal/api"
	"github.com/taibuivan/resumehub/internal/jobs"
	"github.com/taibuivan/resumehub/internal/platform/config"
	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/mail"
	"github.com/taibuivan/resumehub/internal/platform/migration"
	pgstore "github.com/taibuivan/resumehub/internal/platform/postgres"
	redisstore "github.com/taibuivan/resumehub/internal/platform/redis"
	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/internal/users/auth"
)

func main() {
	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("startup failure", slog.String("context", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log := newLogger(cfg.Debug)
	slog.SetDefault(log)

	log.Info("service_initializing",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("mail_dispatch", cfg.MailDispatch),
	)

	// Root context for startup. A signal during boot aborts the dependency
	// waits and stops migrations between files.
	signalCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	startupCtx, startupCancel := context.WithTimeout(signalCtx, 2*time.Minute)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, pgstore.Options{
		DSN:              cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		StatementTimeout: constants.GlobalRequestTimeout,
		Startup:          cfg.StartupPolicy(),
	}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, redisstore.Options{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
		Startup:  cfg.StartupPolicy(),
	}, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	_, err = migration.Up(startupCtx, migration.Options{DSN: cfg.DatabaseURL, Path: cfg.MigrationPath}, log)
	must(log, err, "run migrations")

	// ── 6. Security Primitives ────────────────────────────────────────────
	hasher, err := sec.NewHasher(cfg.HashParams(), cfg.HashConcurrency)
	must(log, err, "initialize password hasher")

	privateKey, err := sec.LoadKeyMaterial(cfg.JWTPrivateKeyPath, cfg.JWTPrivateKey)
	must(log, err, "load jwt private key")
	publicKey, err := sec.LoadKeyMaterial(cfg.JWTPublicKeyPath, cfg.JWTPublicKey)
	must(log, err, "load jwt public key")

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		PrivateKeyPEM: privateKey,
		PublicKeyPEM:  publicKey,
		Issuer:        constants.AuthIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	must(log, err, "initialize jwt service")

	emailTokens, err := sec.NewEmailTokenService(cfg.SecretKey, cfg.SaltEmail, nil)
	must(log, err, "initialize email token service")

	// ── 7. Activation Email Dispatch ──────────────────────────────────────
	dispatcher, closeDispatcher := newDispatcher(cfg, log)
	defer closeDispatcher()

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(auth.Dependencies{
		Users:       auth.NewUserRepository(pool),
		Blacklist:   auth.NewTokenBlacklist(rdb),
		Guard:       auth.NewLoginGuard(rdb),
		Hasher:      hasher,
		Tokens:      tokens,
		EmailTokens: emailTokens,
		Dispatcher:  dispatcher,
		Settings: auth.Settings{
			EmailScope:          auth.Scope{Name: "email", MaxAttempts: cfg.MaxLoginAttempts, Lockout: cfg.LoginBlockTime},
			IPScope:             auth.Scope{Name: "ip", MaxAttempts: cfg.MaxLoginAttemptsPerIP, Lockout: cfg.LoginBlockTimeIP},
			VerificationBaseURL: cfg.VerificationBaseURL(),
			EmailTokenMaxAge:    cfg.EmailTokenMaxAge,
		},
	})
	authHandler := auth.NewHandler(authService, tokens, cfg.CookieSecure)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
	})

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case <-signalCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger shared by every component.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// newDispatcher picks the activation email transport for cfg.MailDispatch.
//
// The returned func releases the transport; for inline dispatch it waits for
// in-flight deliveries.
func newDispatcher(cfg *config.Config, log *slog.Logger) (auth.ActivationDispatcher, func()) {
	if cfg.MailDispatch == config.DispatchInline {
		inline := jobs.NewInlineDispatcher(mail.NewSMTPSender(cfg.SMTP()), cfg.MailPolicy(), log)
		return inline, func() {
			log.Info("waiting for in-flight activation emails")
			inline.Wait()
		}
	}

	queueOpts, err := redisstore.QueueOptions(cfg.RedisURL)
	must(log, err, "configure mail queue")

	client := jobs.NewClient(queueOpts)
	return client, func() {
		if err := client.Close(); err != nil {
			log.Error("queue client close error", slog.Any("error", err))
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
