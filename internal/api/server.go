// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package api assembles the auth service's HTTP surface: the middleware
// chain, the probes, and the auth and debug route groups.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/resumehub/internal/platform/config"
	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/middleware"
	"github.com/taibuivan/resumehub/internal/users/auth"
)

// Handlers is everything [NewServer] mounts.
type Handlers struct {
	Liveness  http.HandlerFunc // GET /health
	Readiness http.HandlerFunc // GET /ready
	Auth      *auth.Handler    // /auth, and /debug when enabled
}

// Server owns the router and the listening [http.Server].
type Server struct {
	httpServer *http.Server
	router     chi.Router
	log        *slog.Logger
}

/*
NewServer builds the router and the [http.Server] around it.

Description: The per-IP limiter runs a sweeper goroutine that exits when
context is cancelled. The /debug group is mounted only when cfg.Debug is set.

Parameters:
  - context: context.Context (lifetime of background middleware state)
  - cfg: *config.Config
  - log: *slog.Logger
  - h: Handlers

Returns:
  - *Server
*/
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	router := chi.NewRouter()

	router.Use(
		middleware.RequestID(),
		middleware.StructuredLogger(log),
		chimw.Timeout(constants.GlobalRequestTimeout),
		middleware.NewRateLimiter(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst).Handler,
		middleware.PanicRecovery(),
		middleware.SecureHeaders(cfg),
		middleware.CORS(cfg.AllowedOrigins),
		chimw.CleanPath,
	)

	mountRoutes(router, h, cfg.Debug, log)

	return &Server{
		router: router,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
		},
	}
}

func mountRoutes(router chi.Router, h Handlers, debug bool, log *slog.Logger) {
	router.Get("/health", h.Liveness)
	router.Get("/ready", h.Readiness)

	router.Mount("/auth", h.Auth.Routes())

	if debug {
		log.Warn("debug_routes_mounted", slog.String("prefix", "/debug"))
		router.Mount("/debug", h.Auth.DebugRoutes())
	}
}

// Handler returns the router without the listener.
func (server *Server) Handler() http.Handler { return server.router }

// ListenAndServe blocks until the server stops. After [Server.Shutdown] it
// returns [http.ErrServerClosed].
func (server *Server) ListenAndServe() error {
	server.log.Info("server_starting", slog.String("addr", server.httpServer.Addr))
	return server.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests for at most timeout.
func (server *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.httpServer.Shutdown(context)
}
