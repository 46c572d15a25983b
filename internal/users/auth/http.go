// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
	"github.com/taibuivan/resumehub/internal/platform/middleware"
	requestutil "github.com/taibuivan/resumehub/internal/platform/request"
	"github.com/taibuivan/resumehub/internal/platform/respond"
	"github.com/taibuivan/resumehub/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Transport only: JSON decoding, validation, cookies and status codes.
// Every decision is made by [Service].
type Handler struct {
	authService  *Service
	verifier     middleware.AccessVerifier
	cookieSecure bool
}

// NewHandler constructs a new [Handler].
//
// # Parameters
//   - service: The auth use cases.
//   - verifier: Validates access tokens for /me.
//   - cookieSecure: Sets the Secure flag on the refresh token cookie.
func NewHandler(service *Service, verifier middleware.AccessVerifier, cookieSecure bool) *Handler {
	return &Handler{authService: service, verifier: verifier, cookieSecure: cookieSecure}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register     : Creates an inactive account and sends the activation email.
//   - GET  /verify-email : Activates the account behind a verification token.
//   - POST /login        : Issues a token pair and sets the refresh cookie.
//   - POST /refresh      : Rotates the refresh token.
//   - POST /logout       : Revokes the refresh token and clears the cookie.
//   - GET  /me           : Returns the authenticated account.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Unauthenticated writes get a tighter per-IP budget
	router.Group(func(r chi.Router) {
		r.Use(middleware.IPRateLimit(constants.AuthWriteRateLimit, constants.AuthWriteRateWindow))
		r.Post("/register", handler.register)
		r.Get("/verify-email", handler.verifyEmail)
	})

	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(handler.verifier))
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})

	return router
}

// DebugRoutes returns development-only helpers. Never mount them in production.
func (handler *Handler) DebugRoutes() chi.Router {
	router := chi.NewRouter()
	router.Post("/generate-verification-link", handler.debugVerificationLink)
	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"     validate:"required,email,max=254"`
	Password string `json:"password"  validate:"required,min=8,max=128"`
	FullName string `json:"full_name" validate:"max=255"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type debugLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

/*
Register handles the creation of a new user account.

POST /auth/register

Request:
  - Body: registerRequest (Email, Password, FullName)

Response:
  - 201: UserOut: Created account (inactive, unverified)
  - 400: VALIDATION_ERROR or DUPLICATE_RESOURCE
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := validate.Struct(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user.Out())
}

/*
VerifyEmail activates the account behind a verification token.

GET /auth/verify-email?token=...

Response:
  - 200: {"detail": "Email verified"} or {"detail": "User is verified"}
  - 400: TOKEN_EXPIRED or TOKEN_INVALID
  - 404: NOT_FOUND
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get(FieldToken)

	validator := &validate.Validator{}
	err := validator.
		Required(FieldToken, token).
		MaxLen(FieldToken, token, maxEmailTokenLength).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	alreadyVerified, err := handler.authService.VerifyEmail(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if alreadyVerified {
		respond.Detail(writer, "User is verified")
		return
	}
	respond.Detail(writer, "Email verified")
}

/*
Login authenticates a user and establishes a session.

POST /auth/login

Response:
  - 200: TokenPair, plus the refresh_token cookie
  - 401: INVALID_CREDENTIALS
  - 403: ACCOUNT_NOT_ACTIVE or ACCOUNT_NOT_VERIFIED
  - 429: RATE_LIMITED with Retry-After
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := validate.Struct(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		IPAddress: clientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, pair.RefreshToken)
	respond.OK(writer, pair)
}

/*
Refresh exchanges a refresh token for a new pair.

POST /auth/refresh

Request:
  - Body (optional): {"refresh_token": "..."}; falls back to the cookie

Response:
  - 200: TokenPair, plus the rotated cookie
  - 401: UNAUTHORIZED, TOKEN_EXPIRED or TOKEN_INVALID
  - 403: FORBIDDEN
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token, err := refreshTokenFrom(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, pair.RefreshToken)
	respond.OK(writer, pair)
}

/*
Logout revokes the refresh token.

POST /auth/logout

Response:
  - 204: Always. The cookie is cleared.
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	// A malformed body must not shield a valid cookie from revocation.
	token, err := bodyRefreshToken(writer, request)
	if err != nil || token == "" {
		token = cookieRefreshToken(request)
	}
	handler.authService.Logout(request.Context(), token)

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

// Me returns the profile of the authenticated caller.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user.Out())
}

// debugVerificationLink returns a link that hits this API's verify endpoint directly.
func (handler *Handler) debugVerificationLink(writer http.ResponseWriter, request *http.Request) {
	var input debugLinkRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := validate.Struct(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.authService.DebugVerificationToken(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	scheme := "http"
	if request.TLS != nil {
		scheme = "https"
	}
	link := scheme + "://" + request.Host + "/auth/verify-email?token=" + url.QueryEscape(token)

	respond.OK(writer, map[string]string{"url": link})
}

// # Cookies

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, token string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    token,
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   int(handler.authService.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// # Helpers

// refreshTokenFrom prefers the JSON body and falls back to the cookie.
func refreshTokenFrom(writer http.ResponseWriter, request *http.Request) (string, error) {
	token, err := bodyRefreshToken(writer, request)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	return cookieRefreshToken(request), nil
}

func bodyRefreshToken(writer http.ResponseWriter, request *http.Request) (string, error) {
	var input refreshRequest
	if err := requestutil.DecodeOptionalJSON(writer, request, &input); err != nil {
		return "", err
	}
	return input.RefreshToken, nil
}

func cookieRefreshToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func clientIP(request *http.Request) string {
	if ip := ctxutil.GetClientIP(request.Context()); ip != "" {
		return ip
	}
	return middleware.RealIP(request)
}
