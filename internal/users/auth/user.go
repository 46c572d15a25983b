// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session lifecycle.

It owns registration, email verification, login, refresh token rotation and
logout, plus the brute-force guard that sits in front of credential checks.

# Architecture

  - user.go: Domain entity and its public projection.
  - store*.go: Postgres for accounts, Redis for the blacklist and login counters.
  - service.go: The use cases, free of HTTP concerns.
  - http.go: chi routes, cookies and status mapping.
*/
package auth

import (
	"time"

	"github.com/taibuivan/resumehub/internal/platform/sec"
)

// # Domain Entities

// User is a registered account.
//
// An account starts inactive and unverified. Email verification flips both
// flags at once and nothing in this service ever sets them back.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	IsVerified   bool
	Role         sec.UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Roles returns the role list carried in access tokens.
func (u *User) Roles() []string {
	return []string{string(u.Role)}
}

// UserOut is the client-safe projection of a [User].
type UserOut struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	FullName   string       `json:"full_name"`
	IsActive   bool         `json:"is_active"`
	IsVerified bool         `json:"is_verified"`
	Role       sec.UserRole `json:"role"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Out projects u for responses. The password hash never leaves the service.
func (u *User) Out() UserOut {
	return UserOut{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
	}
}

// # Field Identifiers

const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldFullName     = "full_name"
	FieldToken        = "token"
	FieldRefreshToken = "refresh_token"
)

// maxEmailTokenLength bounds the verify-email query parameter. Issued tokens
// are a few hundred characters.
const maxEmailTokenLength = 2048
