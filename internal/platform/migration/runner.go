// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the SQL files under data/migrations with
// golang-migrate.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. The API server applies
// pending migrations at startup so the users table exists before traffic is
// served. A dirty schema version stops startup; it needs a human.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// defaultLockTimeout bounds the wait for the advisory lock held by another replica.
const defaultLockTimeout = 30 * time.Second

// Options configures [Up].
type Options struct {
	DSN         string
	Path        string
	LockTimeout time.Duration
}

// Result reports the schema version before and after [Up].
type Result struct {
	From    uint
	To      uint
	Changed bool
}

/*
Up applies all pending migrations.

Description: Cancelling ctx asks golang-migrate to stop after the migration in
progress, so a SIGTERM during boot never leaves a half-applied file.

Parameters:
  - ctx: context.Context
  - opts: Options
  - logger: *slog.Logger

Returns:
  - Result: Versions before and after
  - error: Dirty schema, lock timeout or SQL failure
*/
func Up(ctx context.Context, opts Options, logger *slog.Logger) (Result, error) {
	sourceURL, err := SourceURL(opts.Path)
	if err != nil {
		return Result{}, err
	}

	migrator, err := migrate.New(sourceURL, ToPgx5DSN(opts.DSN))
	if err != nil {
		return Result{}, fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer closeMigrator(migrator, logger)

	migrator.Log = &migrateLogger{logger: logger}
	migrator.LockTimeout = opts.LockTimeout
	if migrator.LockTimeout <= 0 {
		migrator.LockTimeout = defaultLockTimeout
	}

	from, isDirty, err := currentVersion(migrator)
	if err != nil {
		return Result{}, err
	}
	if isDirty {
		return Result{From: from}, fmt.Errorf("migration: database is dirty at version %d, fix it by hand and force the version", from)
	}

	stop := context.AfterFunc(ctx, func() {
		logger.Warn("migration_stop_requested")
		migrator.GracefulStop <- true
	})
	defer stop()

	logger.Info("migration_started", slog.Uint64("current_version", uint64(from)))

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Result{From: from}, fmt.Errorf("migration: up failed: %w", err)
	}

	to, _, err := currentVersion(migrator)
	if err != nil {
		return Result{From: from}, err
	}

	result := Result{From: from, To: to, Changed: to != from}
	if result.Changed {
		logger.Info("migration_successful",
			slog.Uint64("from_version", uint64(from)),
			slog.Uint64("to_version", uint64(to)),
		)
	} else {
		logger.Info("migration_already_up_to_date", slog.Uint64("version", uint64(to)))
	}

	return result, nil
}

// SourceURL turns a directory into the file:// URL the file source expects.
func SourceURL(path string) (string, error) {
	if path == "" {
		return "", errors.New("migration: path is empty")
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("migration: resolve %q: %w", path, err)
	}
	return "file://" + filepath.ToSlash(absolute), nil
}

// ToPgx5DSN rewrites postgres:// and postgresql:// URLs to the pgx5:// scheme
// golang-migrate expects. Other DSNs are returned unchanged.
func ToPgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

func currentVersion(migrator *migrate.Migrate) (uint, bool, error) {
	version, isDirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration: failed to read version: %w", err)
	}
	return version, isDirty, nil
}

func closeMigrator(migrator *migrate.Migrate, logger *slog.Logger) {
	sourceError, dbError := migrator.Close()
	if sourceError != nil {
		logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
	}
	if dbError != nil {
		logger.Error("migration_db_close_failed", slog.Any("error", dbError))
	}
}

// migrateLogger bridges migrate.Logger to slog at debug level.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}
