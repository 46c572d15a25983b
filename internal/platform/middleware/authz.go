// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
	"github.com/taibuivan/resumehub/internal/platform/respond"
	"github.com/taibuivan/resumehub/internal/platform/sec"
)

// # Bearer Authentication

// AccessVerifier validates bearer access tokens. A [*sec.Verifier] built from
// the public key alone is enough.
type AccessVerifier interface {
	ValidateAccess(raw string) (*sec.Claims, error)
}

var (
	errMalformedAuthorization = apperr.Unauthorized("Invalid authorization format")
	errAnonymous              = apperr.Unauthorized("Authentication required")
)

/*
Authenticate attaches the caller's access token claims to the request context.

Description: A request without an Authorization header passes through
anonymously; pair it with [RequireAuth] to reject those. A header that is
present must be a valid "Bearer <access token>". Refresh tokens are refused
here because their typ claim differs.

Parameters:
  - verifier: AccessVerifier

Returns:
  - func(http.Handler) http.Handler
*/
func Authenticate(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			raw, ok := bearerToken(header)
			if !ok {
				respond.Error(writer, request, errMalformedAuthorization)
				return
			}

			claims, err := verifier.ValidateAccess(raw)
			if err != nil {
				respond.Error(writer, request, accessTokenError(err))
				return
			}

			next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthUser(request.Context(), claims)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || token == "" || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	return token, true
}

func accessTokenError(err error) *apperr.AppError {
	if errors.Is(err, sec.ErrTokenExpired) {
		return apperr.TokenExpired(http.StatusUnauthorized, "Access token expired")
	}
	return apperr.TokenInvalid(http.StatusUnauthorized, "Invalid access token")
}

// # Guards

// RequireAuth rejects anonymous requests. Register it after [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, errAnonymous)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole rejects callers whose highest role is below role. Anonymous
// callers get 401, authenticated ones 403.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			switch {
			case claims == nil:
				respond.Error(writer, request, errAnonymous)
			case !sec.HighestRole(claims.Roles).AtLeast(role):
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
			default:
				next.ServeHTTP(writer, request)
			}
		})
	}
}
