// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package requestutil reads JSON bodies and the authenticated caller out of
// incoming requests.
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
	"github.com/taibuivan/resumehub/internal/platform/validate"
)

// maxBodyBytes caps every decoded body at 1 MiB.
const maxBodyBytes = 1 << 20

// # Bodies

/*
DecodeJSON decodes the request body into target.

Parameters:
  - writer: http.ResponseWriter (needed by the size cap)
  - request: *http.Request
  - target: any (pointer to the destination)

Returns:
  - error: validate.ErrInvalidJSON for an empty, oversized or malformed body
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	return decode(writer, request, target, false)
}

// DecodeOptionalJSON is [DecodeJSON] for endpoints whose body may be absent,
// such as refresh and logout where the cookie can stand in.
func DecodeOptionalJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	if request.Body == nil || request.Body == http.NoBody {
		return nil
	}
	return decode(writer, request, target, true)
}

func decode(writer http.ResponseWriter, request *http.Request, target any, allowEmpty bool) error {
	if request.Body == nil {
		return validate.ErrInvalidJSON
	}

	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(target)
	switch {
	case err == nil:
		return nil
	case allowEmpty && errors.Is(err, io.EOF):
		return nil
	default:
		return validate.ErrInvalidJSON
	}
}

// # Caller

// RequiredUserID returns the subject of the verified access token, or a 401
// when the request is anonymous.
func RequiredUserID(request *http.Request) (string, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	return claims.UserID(), nil
}
