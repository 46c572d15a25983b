// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/resumehub/internal/platform/database/schema"
	"github.com/taibuivan/resumehub/internal/platform/dberr"
	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users table.

Description: Timestamps are initialized if not provided. The unique index on
email is the final arbiter when two registrations race.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrEmailTaken, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.Users.Table, schema.Users.ColumnList(),
	)

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.IsActive,
		user.IsVerified,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err := dberr.Wrap(err, "postgres_user_repo_create_failed"); err != nil {
		if errors.Is(err, dberr.ErrDuplicate) {
			return ErrEmailTaken
		}
		return err
	}

	return nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.Users.ColumnList(), schema.Users.Table, schema.Users.Email)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, mapLookupError(err, "postgres_user_repo_find_by_email_failed")
	}
	return user, nil
}

// FindByID retrieves a user record by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	// A malformed subject can never match the uuid column.
	if !uuid.Valid(id) {
		return nil, ErrUserNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.Users.ColumnList(), schema.Users.Table, schema.Users.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, mapLookupError(err, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

/*
MarkVerified activates and verifies the account in one statement.

Returns:
  - error: ErrUserNotFound if no row matched
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = TRUE, %s = NOW()
		WHERE %s = $1`,
		schema.Users.Table,
		schema.Users.IsActive, schema.Users.IsVerified, schema.Users.UpdatedAt,
		schema.Users.ID,
	)

	return repository.execOne(context, query, "postgres_user_repo_mark_verified_failed", userID)
}

// UpdatePassword replaces the stored hash, used when a legacy hash is upgraded.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		schema.Users.Table, schema.Users.PasswordHash, schema.Users.UpdatedAt, schema.Users.ID)

	return repository.execOne(context, query, "postgres_user_repo_update_password_failed", userID, newHash)
}

func (repository *PostgresUserRepository) execOne(context context.Context, query, action string, args ...any) error {
	tag, err := repository.pool.Exec(context, query, args...)
	if err != nil {
		return dberr.Wrap(err, action)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// # Helpers

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var role string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.IsActive,
		&user.IsVerified,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = sec.UserRole(role)
	return user, nil
}

func mapLookupError(err error, action string) error {
	wrapped := dberr.Wrap(err, action)
	if errors.Is(wrapped, dberr.ErrNotFound) {
		return ErrUserNotFound
	}
	return wrapped
}
