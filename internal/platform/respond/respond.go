// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes HTTP responses for the auth handlers.
//
// Success payloads are encoded as given. Failures always use [ErrorEnvelope],
// so clients can branch on the stable code instead of the message.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
)

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Detail  string              `json:"detail"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"errors,omitempty"`
}

// # Success

// JSON encodes payload with the given status.
func JSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

func OK(writer http.ResponseWriter, payload any) { JSON(writer, http.StatusOK, payload) }
func Created(writer http.ResponseWriter, payload any) { JSON(writer, http.StatusCreated, payload) }
func NoContent(writer http.ResponseWriter) { writer.WriteHeader(http.StatusNoContent) }

// Detail writes 200 with a {"detail": message} body.
func Detail(writer http.ResponseWriter, message string) {
	OK(writer, map[string]string{constants.FieldDetail: message})
}

// # Failure

/*
Error writes err as an [ErrorEnvelope].

Description: Errors that are not an [apperr.AppError] become INTERNAL_ERROR and
their text never reaches the client. Every 5xx is logged with its cause. A
positive RetryAfter is mirrored into the Retry-After header.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request (supplies the request-scoped logger)
  - err: error
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := classify(err)

	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	if appError.RetryAfter > 0 {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(appError.RetryAfter))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Detail:  appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}

func classify(err error) *apperr.AppError {
	var appError *apperr.AppError
	if errors.As(err, &appError) {
		return appError
	}
	return apperr.Internal(err)
}
