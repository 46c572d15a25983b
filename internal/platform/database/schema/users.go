// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns created by data/migrations.
//
// Repositories build SQL from these values instead of repeating literals, so a
// renamed column is a one-line change here plus a migration.
package schema

import "strings"

// UsersTable represents the 'users' table
type UsersTable struct {
	Table        string
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	IsActive     string
	IsVerified   string
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

// Users is the schema definition for users
var Users = UsersTable{
	Table:        "users",
	ID:           "id",
	Email:        "email",
	PasswordHash: "password_hash",
	FullName:     "full_name",
	IsActive:     "is_active",
	IsVerified:   "is_verified",
	Role:         "role",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
}

// Columns returns all column names in scan order
func (t UsersTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.PasswordHash, t.FullName, t.IsActive,
		t.IsVerified, t.Role, t.CreatedAt, t.UpdatedAt,
	}
}

// ColumnList returns Columns joined for a SELECT or INSERT list
func (t UsersTable) ColumnList() string {
	return strings.Join(t.Columns(), ", ")
}
