// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned by repositories when no account matches.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string (matched exactly as stored)

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or database failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or database failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		Create persists a brand-new user account.

		Parameters:
		  - context: context.Context
		  - user: *User (timestamps are filled in)

		Returns:
		  - error: ErrEmailTaken or persistence failures
	*/
	Create(context context.Context, user *User) error

	// MarkVerified sets is_active and is_verified on the account.
	MarkVerified(context context.Context, userID string) error

	// UpdatePassword replaces only the user's password hash.
	UpdatePassword(context context.Context, userID, newHash string) error
}

// # Volatile Data Access

// TokenBlacklist records refresh tokens that must never be accepted again.
type TokenBlacklist interface {

	/*
		Blacklist marks token as spent for ttl.

		Returns:
		  - bool: true only for the caller that recorded it first
		  - error: Store failures. They are never read as "already spent".
	*/
	Blacklist(context context.Context, token string, ttl time.Duration) (bool, error)

	// IsBlacklisted reports whether token has been spent.
	IsBlacklisted(context context.Context, token string) (bool, error)
}

// Scope names one dimension of brute-force tracking.
type Scope struct {
	Name        string
	MaxAttempts int
	Lockout     time.Duration
}

// LoginGuard counts failed logins per scope and key and blocks once a
// threshold is reached.
type LoginGuard interface {
	IsBlocked(context context.Context, scope Scope, key string) (bool, error)

	// RetryAfter returns the remaining block time, or zero if not blocked.
	RetryAfter(context context.Context, scope Scope, key string) (time.Duration, error)

	/*
		RecordFailure increments the counter. Reaching MaxAttempts sets the
		block flag for Lockout and deletes the counter.

		Returns:
		  - bool: true if this failure triggered the block
	*/
	RecordFailure(context context.Context, scope Scope, key string) (bool, error)

	// Reset clears the counter and the block flag.
	Reset(context context.Context, scope Scope, key string) error
}
