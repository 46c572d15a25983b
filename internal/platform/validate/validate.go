// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field-level errors before returning a single
// [apperr.AppError].
//
// Request bodies are checked with struct tags through [Struct]. Query
// parameters use the chainable [Validator].
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
)

var (
	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

	// structValidator is shared; validator.Validate caches struct metadata and is safe for concurrent use.
	structValidator = newStructValidator()
)

// # Struct Validation

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Struct validates target using its `validate` tags.
//
// It returns a VALIDATION_ERROR [apperr.AppError] with one [apperr.FieldError]
// per failed rule, or nil when target is valid.
func Struct(target interface{}) error {
	err := structValidator.Struct(target)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperr.Internal(fmt.Errorf("validate: %w", err))
	}

	details := make([]apperr.FieldError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		details = append(details, apperr.FieldError{
			Field:   fieldError.Field(),
			Message: describe(fieldError),
		})
	}
	return apperr.ValidationError("Validation failed", details...)
}

// describe renders a client-facing message for a failed tag.
func describe(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Minimum %s characters", fieldError.Param())
	case "max":
		return fmt.Sprintf("Maximum %s characters", fieldError.Param())
	default:
		return fmt.Sprintf("Failed the '%s' rule", fieldError.Tag())
	}
}

// # Chainable Validator

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
