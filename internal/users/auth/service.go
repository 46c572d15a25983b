// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/pkg/uuid"
)

// # Contracts & Types

// ActivationDispatcher hands the activation email to whatever delivers it.
// It must return without waiting for SMTP.
type ActivationDispatcher interface {
	DispatchActivation(context context.Context, email, link string) error
}

// Settings holds the tunables of the auth flows.
type Settings struct {
	EmailScope          Scope
	IPScope             Scope
	VerificationBaseURL string
	EmailTokenMaxAge    time.Duration
}

// Dependencies collects everything [NewService] needs.
type Dependencies struct {
	Users       UserRepository
	Blacklist   TokenBlacklist
	Guard       LoginGuard
	Hasher      *sec.Hasher
	Tokens      *sec.TokenService
	EmailTokens *sec.EmailTokenService
	Dispatcher  ActivationDispatcher
	Settings    Settings
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any change to the order of checks in
// Login or Refresh changes what an attacker can learn from a response.
type Service struct {
	users       UserRepository
	blacklist   TokenBlacklist
	guard       LoginGuard
	hasher      *sec.Hasher
	tokens      *sec.TokenService
	emailTokens *sec.EmailTokenService
	dispatcher  ActivationDispatcher
	settings    Settings
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps Dependencies) *Service {
	return &Service{
		users:       deps.Users,
		blacklist:   deps.Blacklist,
		guard:       deps.Guard,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		emailTokens: deps.EmailTokens,
		dispatcher:  deps.Dispatcher,
		settings:    deps.Settings,
	}
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

/*
Register creates an inactive, unverified account and dispatches its
activation email.

Description: The email is not sent here. A dispatch failure is logged and the
account still exists; the user can be sent a new link later.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: DUPLICATE_RESOURCE (400) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	logger := ctxutil.GetLogger(context)

	// 1. Reject known emails before paying for a hash
	_, err := service.users.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Duplicate("Email already registered")
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	// 2. Hash and persist
	hashedPassword, err := service.hasher.Hash(context, input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FullName:     norm.NFC.String(strings.TrimSpace(input.FullName)),
		Role:         sec.RoleUser,
	}

	if err := service.users.Create(context, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Duplicate("Email already registered")
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	logger.Info("user_registered", slog.String("user_id", user.ID))

	// 3. Fire-and-forget activation email
	link, err := service.VerificationLink(user.Email)
	if err != nil {
		logger.Error("activation_link_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return user, nil
	}

	if err := service.dispatcher.DispatchActivation(context, user.Email, link); err != nil {
		logger.Error("activation_dispatch_failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return user, nil
}

// VerificationLink builds the frontend URL that carries a fresh verification token.
func (service *Service) VerificationLink(email string) (string, error) {
	token, err := service.emailTokens.Issue(email)
	if err != nil {
		return "", err
	}
	return service.settings.VerificationBaseURL + "?token=" + url.QueryEscape(token), nil
}

// # Email Verification

/*
VerifyEmail redeems a verification token and activates the account.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - bool: true if the account had already been verified
  - error: TOKEN_EXPIRED / TOKEN_INVALID (400), NOT_FOUND (404) or storage errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) (bool, error) {
	email, err := service.emailTokens.Redeem(token, service.settings.EmailTokenMaxAge)
	if err != nil {
		if errors.Is(err, sec.ErrVerificationExpired) {
			return false, apperr.TokenExpired(http.StatusBadRequest, "Token expired")
		}
		return false, apperr.TokenInvalid(http.StatusBadRequest, "Invalid token")
	}

	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, apperr.NotFound("User")
		}
		return false, fmt.Errorf("auth_service_verify_lookup_failed: %w", err)
	}

	if user.IsVerified {
		return true, nil
	}

	if err := service.users.MarkVerified(context, user.ID); err != nil {
		return false, fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	ctxutil.GetLogger(context).Info("email_verified", slog.String("user_id", user.ID))
	return false, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

/*
Login authenticates a user and issues a token pair.

Description: The checks run in a fixed order. Lockout comes first, so a
blocked caller learns nothing about the credentials. Unknown emails and wrong
passwords are indistinguishable: both cost one hash verification, count
against both scopes and return the same 401. Account state is revealed only
after the password matched.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *TokenPair: Fresh access and refresh tokens
  - error: RATE_LIMITED (429), INVALID_CREDENTIALS (401),
    ACCOUNT_NOT_ACTIVE / ACCOUNT_NOT_VERIFIED (403) or storage errors
*/
func (service *Service) Login(context context.Context, input LoginInput) (*TokenPair, error) {
	logger := ctxutil.GetLogger(context)
	targets := service.loginTargets(input)

	// 1. CHECK_LOCKOUT
	for _, target := range targets {
		blocked, err := service.guard.IsBlocked(context, target.scope, target.key)
		if err != nil {
			return nil, fmt.Errorf("auth_service_lockout_check_failed: %w", err)
		}
		if blocked {
			retryAfter, err := service.guard.RetryAfter(context, target.scope, target.key)
			if err != nil {
				return nil, fmt.Errorf("auth_service_lockout_ttl_failed: %w", err)
			}
			logger.Warn("login_rejected_blocked", slog.String("scope", target.scope.Name))
			return nil, lockedOut(retryAfter)
		}
	}

	// 2. CHECK_CREDENTIALS
	user, err := service.users.FindByEmail(context, input.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
		}
		if err := service.hasher.VerifyDummy(context, input.Password); err != nil {
			return nil, fmt.Errorf("auth_service_dummy_verify_failed: %w", err)
		}
		return nil, service.failLogin(context, targets)
	}

	matched, err := service.hasher.Verify(context, input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verify_failed: %w", err)
	}
	if !matched {
		return nil, service.failLogin(context, targets)
	}

	// 3. CHECK_ACCOUNT_STATE
	if !user.IsActive {
		return nil, apperr.AccountNotActive()
	}
	if !user.IsVerified {
		return nil, apperr.AccountNotVerified()
	}

	// 4. ISSUE_TOKENS
	for _, target := range targets {
		if err := service.guard.Reset(context, target.scope, target.key); err != nil {
			return nil, fmt.Errorf("auth_service_lockout_reset_failed: %w", err)
		}
	}

	service.upgradeHash(context, user, input.Password)

	pair, err := service.issuePair(user)
	if err != nil {
		return nil, err
	}

	logger.Info("login_succeeded", slog.String("user_id", user.ID))
	return pair, nil
}

type loginTarget struct {
	scope Scope
	key   string
}

func (service *Service) loginTargets(input LoginInput) []loginTarget {
	targets := []loginTarget{{scope: service.settings.EmailScope, key: input.Email}}
	if input.IPAddress != "" {
		targets = append(targets, loginTarget{scope: service.settings.IPScope, key: input.IPAddress})
	}
	return targets
}

// failLogin counts the failure on every scope and returns the uniform 401.
func (service *Service) failLogin(context context.Context, targets []loginTarget) error {
	logger := ctxutil.GetLogger(context)

	for _, target := range targets {
		blocked, err := service.guard.RecordFailure(context, target.scope, target.key)
		if err != nil {
			return fmt.Errorf("auth_service_record_failure_failed: %w", err)
		}
		if blocked {
			logger.Warn("login_blocked", slog.String("scope", target.scope.Name))
		}
	}

	logger.Info("login_failed")
	return apperr.InvalidCredentials()
}

// upgradeHash rewrites hashes produced with older parameters. Failures are logged only.
func (service *Service) upgradeHash(context context.Context, user *User, password string) {
	if !service.hasher.NeedsRehash(user.PasswordHash) {
		return
	}

	logger := ctxutil.GetLogger(context)

	newHash, err := service.hasher.Hash(context, password)
	if err != nil {
		logger.Warn("password_rehash_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := service.users.UpdatePassword(context, user.ID, newHash); err != nil {
		logger.Warn("password_rehash_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	logger.Info("password_rehashed", slog.String("user_id", user.ID))
}

func lockedOut(retryAfter time.Duration) *apperr.AppError {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	appError := apperr.RateLimited(seconds)
	appError.Message = "Too many failed login attempts. Please try again later."
	return appError
}

// # Session Lifecycle

/*
Refresh rotates a refresh token.

Description: The presented token is blacklisted for its remaining lifetime
with SET NX before the new pair is issued. When two requests present the same
token, only the one that created the entry gets a pair.

Parameters:
  - context: context.Context
  - raw: string (refresh token from the body or the cookie)

Returns:
  - *TokenPair: Fresh access and refresh tokens
  - error: UNAUTHORIZED / TOKEN_EXPIRED / TOKEN_INVALID (401), FORBIDDEN (403) or storage errors
*/
func (service *Service) Refresh(context context.Context, raw string) (*TokenPair, error) {
	if raw == "" {
		return nil, apperr.Unauthorized("Missing refresh token")
	}

	// 1. Spent tokens are rejected before any crypto
	spent, err := service.blacklist.IsBlacklisted(context, raw)
	if err != nil {
		return nil, fmt.Errorf("auth_service_blacklist_check_failed: %w", err)
	}
	if spent {
		return nil, apperr.TokenInvalid(http.StatusUnauthorized, "Invalid refresh token")
	}

	// 2. Signature, expiry and discriminator
	claims, err := service.tokens.ValidateRefresh(raw)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, apperr.TokenExpired(http.StatusUnauthorized, "Refresh token expired")
		}
		return nil, apperr.TokenInvalid(http.StatusUnauthorized, "Invalid refresh token")
	}

	// 3. The account must still be allowed in
	user, err := service.users.FindByID(context, claims.UserID())
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}
	if user == nil || !user.IsActive || !user.IsVerified {
		return nil, apperr.Forbidden("User account is not active or not verified")
	}

	// 4. Spend the old token; losing the race means someone else already did
	created, err := service.blacklist.Blacklist(context, raw, service.tokens.Remaining(claims))
	if err != nil {
		return nil, fmt.Errorf("auth_service_blacklist_failed: %w", err)
	}
	if !created {
		return nil, apperr.TokenInvalid(http.StatusUnauthorized, "Invalid refresh token")
	}

	return service.issuePair(user)
}

/*
Logout revokes a refresh token. It never fails.

Description: Tokens that do not verify are ignored, and store errors are
logged. The caller clears the cookie either way.
*/
func (service *Service) Logout(context context.Context, raw string) {
	if raw == "" {
		return
	}

	logger := ctxutil.GetLogger(context)

	claims, err := service.tokens.ValidateRefresh(raw)
	if err != nil {
		logger.Debug("logout_token_ignored", slog.Any("error", err))
		return
	}

	if _, err := service.blacklist.Blacklist(context, raw, service.tokens.Remaining(claims)); err != nil {
		logger.Warn("logout_blacklist_failed", slog.String("user_id", claims.UserID()), slog.Any("error", err))
		return
	}

	logger.Info("logout_succeeded", slog.String("user_id", claims.UserID()))
}

// # Profile

// Me returns the account behind a verified access token.
func (service *Service) Me(context context.Context, userID string) (*User, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth_service_me_failed: %w", err)
	}
	return user, nil
}

// DebugVerificationToken issues a verification token for an existing account.
// Only reachable when debug routes are mounted.
func (service *Service) DebugVerificationToken(context context.Context, email string) (string, error) {
	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", apperr.NotFound("User")
		}
		return "", fmt.Errorf("auth_service_debug_lookup_failed: %w", err)
	}
	return service.emailTokens.Issue(user.Email)
}

// # Helpers

func (service *Service) issuePair(user *User) (*TokenPair, error) {
	accessToken, err := service.tokens.IssueAccess(user.ID, user.Roles())
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    constants.TokenTypeBearer,
	}, nil
}

// RefreshTTL is the cookie lifetime for refresh tokens.
func (service *Service) RefreshTTL() time.Duration {
	return service.tokens.RefreshTTL()
}
