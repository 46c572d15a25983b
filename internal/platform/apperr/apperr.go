// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the errors the auth service reports to its clients.

An [AppError] pairs a stable machine code with an HTTP status and a message
that is safe to show. Storage and crypto failures travel as Cause and only
reach the logs. The respond package renders anything that is not an
[AppError] as INTERNAL_ERROR.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeDuplicateResource  = "DUPLICATE_RESOURCE"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountNotActive   = "ACCOUNT_NOT_ACTIVE"
	CodeAccountNotVerified = "ACCOUNT_NOT_VERIFIED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeRateLimited        = "RATE_LIMITED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is an error with a client-facing shape. Cause is never serialised.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"detail"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// RetryAfter is reported in the Retry-After header when positive.
	RetryAfter int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"errors,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of e that records cause for logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Constructors

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// NotFound reports a missing resource, e.g. NotFound("User") is "User not found".
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Duplicate reports a unique identity that already exists. It is a 400, not a 409.
func Duplicate(msg string) *AppError {
	return newError(CodeDuplicateResource, http.StatusBadRequest, msg)
}

func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// InvalidCredentials is the single answer for an unknown email and a wrong password.
func InvalidCredentials() *AppError {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, "Incorrect email or password")
}

func AccountNotActive() *AppError {
	return newError(CodeAccountNotActive, http.StatusForbidden, "Account is not active")
}

func AccountNotVerified() *AppError {
	return newError(CodeAccountNotVerified, http.StatusForbidden, "Email is not verified")
}

// TokenExpired and TokenInvalid take the status from the caller: an email
// link answers 400, a bearer or refresh token 401.
func TokenExpired(status int, msg string) *AppError {
	return newError(CodeTokenExpired, status, msg)
}

func TokenInvalid(status int, msg string) *AppError {
	return newError(CodeTokenInvalid, status, msg)
}

// ValidationError is a 400 carrying optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	appError := newError(CodeValidation, http.StatusBadRequest, msg)
	appError.Details = details
	return appError
}

// RateLimited is a 429 whose RetryAfter feeds the Retry-After header.
func RateLimited(retryAfterSeconds int) *AppError {
	appError := newError(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
	appError.RetryAfter = retryAfterSeconds
	return appError
}

// Internal hides cause behind a generic 500.
func Internal(cause error) *AppError {
	appError := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	appError.Cause = cause
	return appError
}

// # Inspection

// As returns the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError
	}
	return nil
}

func IsAppError(err error) bool { return As(err) != nil }

// HasCode reports whether err's chain holds an [*AppError] with code.
func HasCode(err error, code string) bool {
	appError := As(err)
	return appError != nil && appError.Code == code
}
