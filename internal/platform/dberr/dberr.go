// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// the sentinel errors repositories return to the service layer.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a queried row doesn't exist.
	ErrNotFound = errors.New("dberr: row not found")

	// ErrDuplicate is returned when an insert or update hits a unique constraint.
	ErrDuplicate = errors.New("dberr: duplicate key")
)

// Wrap classifies a pgx error.
//
// pgx.ErrNoRows becomes [ErrNotFound], SQLSTATE 23505 becomes [ErrDuplicate],
// and everything else is wrapped with the action name so the cause survives
// for logging.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgError.ConstraintName)
	}

	return fmt.Errorf("%s: %w", action, err)
}
