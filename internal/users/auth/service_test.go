// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
	"github.com/taibuivan/resumehub/internal/platform/sec"
)

func requireAppError(t *testing.T, err error, code string, status int) *apperr.AppError {
	t.Helper()
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected *AppError, got %v", err)
	assert.Equal(t, code, appError.Code)
	assert.Equal(t, status, appError.HTTPStatus)
	return appError
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

// # Register

func TestRegister_CreatesInactiveAccount(t *testing.T) {
	f := newFixture(t)

	user, err := f.service.Register(context.Background(), RegisterInput{
		Email:    "ana@example.com",
		Password: "correct horse",
		FullName: "  José  ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.False(t, user.IsActive)
	assert.False(t, user.IsVerified)
	assert.Equal(t, sec.RoleUser, user.Role)
	assert.Equal(t, "José", user.FullName, "full name is trimmed and NFC-normalised")
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$argon2id$"))

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "ana@example.com", f.dispatcher.sent[0].email)
	assert.True(t, strings.HasPrefix(f.dispatcher.sent[0].link, testVerificationBaseURL+"?token="))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "whatever1")

	_, err := f.service.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "another-pass"})
	requireAppError(t, err, apperr.CodeDuplicateResource, http.StatusBadRequest)
	assert.Empty(t, f.dispatcher.sent)
}

func TestRegister_DispatchFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("queue unavailable")

	user, err := f.service.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", f.users.get(t, "ana@example.com").Email)
	assert.NotNil(t, user)
}

func TestRegister_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.users.err = errStoreDown

	_, err := f.service.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "correct horse"})
	require.Error(t, err)
	assert.False(t, apperr.IsAppError(err))
	assert.ErrorIs(t, err, errStoreDown)
}

// # Verify Email

func TestVerifyEmail_ActivatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "correct horse"})
	require.NoError(t, err)
	token := tokenFromLink(t, f.dispatcher.sent[0].link)

	alreadyVerified, err := f.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.False(t, alreadyVerified)

	user := f.users.get(t, "ana@example.com")
	assert.True(t, user.IsActive)
	assert.True(t, user.IsVerified)

	alreadyVerified, err = f.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, alreadyVerified)
}

func TestVerifyEmail_Expired(t *testing.T) {
	f := newFixture(t)
	token, err := f.emailTokens.Issue("ana@example.com")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	_, err = f.service.VerifyEmail(context.Background(), token)
	requireAppError(t, err, apperr.CodeTokenExpired, http.StatusBadRequest)
}

func TestVerifyEmail_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.VerifyEmail(context.Background(), "not-a-token")
	requireAppError(t, err, apperr.CodeTokenInvalid, http.StatusBadRequest)
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	f := newFixture(t)
	token, err := f.emailTokens.Issue("ghost@example.com")
	require.NoError(t, err)

	_, err = f.service.VerifyEmail(context.Background(), token)
	requireAppError(t, err, apperr.CodeNotFound, http.StatusNotFound)
}

// # Login

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	user := f.activeUser(t, "ana@example.com", "correct horse")

	pair := f.login(t, "ana@example.com", "correct horse")

	assert.Equal(t, "bearer", pair.TokenType)

	access, err := f.tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, access.UserID())
	assert.Equal(t, []string{"user"}, access.Roles)

	refresh, err := f.tokens.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refresh.UserID())
}

func TestLogin_UniformFailure(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()

	_, wrongPassword := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "battery staple", IPAddress: "203.0.113.1"})
	_, unknownEmail := f.service.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "battery staple", IPAddress: "203.0.113.1"})

	first := requireAppError(t, wrongPassword, apperr.CodeInvalidCredentials, http.StatusUnauthorized)
	second := requireAppError(t, unknownEmail, apperr.CodeInvalidCredentials, http.StatusUnauthorized)
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, "Incorrect email or password", first.Message)

	// Both failures counted against the shared address.
	count, err := f.redis.Get("auth:login_attempts:ip:203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}

func TestLogin_UnknownEmailAfterCancelledCaller(t *testing.T) {
	f := newFixture(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, f.hasher.VerifyDummy(cancelled, "battery staple"))

	_, err := f.service.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "battery staple", IPAddress: "203.0.113.1"})
	requireAppError(t, err, apperr.CodeInvalidCredentials, http.StatusUnauthorized)
}

func TestLogin_AccountStateOnlyAfterCredentials(t *testing.T) {
	f := newFixture(t)
	user := f.activeUser(t, "ana@example.com", "correct horse")
	user.IsActive = false
	user.IsVerified = false
	f.users.put(user)
	ctx := context.Background()

	_, err := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong password"})
	requireAppError(t, err, apperr.CodeInvalidCredentials, http.StatusUnauthorized)

	_, err = f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse"})
	requireAppError(t, err, apperr.CodeAccountNotActive, http.StatusForbidden)

	user.IsActive = true
	f.users.put(user)

	_, err = f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse"})
	requireAppError(t, err, apperr.CodeAccountNotVerified, http.StatusForbidden)
}

func TestLogin_LockoutPerEmail(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "nope", IPAddress: "203.0.113.1"})
		requireAppError(t, err, apperr.CodeInvalidCredentials, http.StatusUnauthorized)
	}

	// Even the right password is refused while blocked.
	_, err := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse", IPAddress: "203.0.113.2"})
	appError := requireAppError(t, err, apperr.CodeRateLimited, http.StatusTooManyRequests)
	assert.InDelta(t, 900, appError.RetryAfter, 1)

	f.redis.FastForward(15*time.Minute + time.Second)

	pair := f.login(t, "ana@example.com", "correct horse")
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogin_LockoutPerIP(t *testing.T) {
	f := newFixture(t, func(settings *Settings) {
		settings.IPScope.MaxAttempts = 3
	})
	f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.service.Login(ctx, LoginInput{Email: email, Password: "nope", IPAddress: "198.51.100.7"})
		requireAppError(t, err, apperr.CodeInvalidCredentials, http.StatusUnauthorized)
	}

	_, err := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse", IPAddress: "198.51.100.7"})
	requireAppError(t, err, apperr.CodeRateLimited, http.StatusTooManyRequests)

	// Another address is unaffected.
	_, err = f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse", IPAddress: "198.51.100.8"})
	require.NoError(t, err)
}

func TestLogin_SuccessResetsCounters(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "nope", IPAddress: "203.0.113.10"})
		require.Error(t, err)
	}

	f.login(t, "ana@example.com", "correct horse")
	assert.False(t, f.redis.Exists("auth:login_attempts:email:ana@example.com"))
	assert.False(t, f.redis.Exists("auth:login_attempts:ip:203.0.113.10"))

	for i := 0; i < 4; i++ {
		_, err := f.service.Login(ctx, LoginInput{Email: "ana@example.com", Password: "nope", IPAddress: "203.0.113.10"})
		requireAppError(t, err, apperr.CodeInvalidCredentials, http.StatusUnauthorized)
	}
}

func TestLogin_RedisDownIsServerError(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	f.redis.Close()

	_, err := f.service.Login(context.Background(), LoginInput{Email: "ana@example.com", Password: "correct horse", IPAddress: "203.0.113.1"})
	require.Error(t, err)
	assert.False(t, apperr.IsAppError(err), "store failures must not be read as not blocked")
}

func TestLogin_UpgradesLegacyBcrypt(t *testing.T) {
	f := newFixture(t)
	user := f.activeUser(t, "ana@example.com", "correct horse")

	legacy, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user.PasswordHash = string(legacy)
	f.users.put(user)

	f.login(t, "ana@example.com", "correct horse")

	upgraded := f.users.get(t, "ana@example.com").PasswordHash
	assert.True(t, strings.HasPrefix(upgraded, "$argon2id$"))

	// The new hash still accepts the same password.
	f.login(t, "ana@example.com", "correct horse")
}

// # Refresh

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()

	first := f.login(t, "ana@example.com", "correct horse")

	second, err := f.service.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	_, err = f.service.Refresh(ctx, first.RefreshToken)
	requireAppError(t, err, apperr.CodeTokenInvalid, http.StatusUnauthorized)

	_, err = f.service.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentReuseHasOneWinner(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	pair := f.login(t, "ana@example.com", "correct horse")

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Refresh(context.Background(), pair.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t)
	user := f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()
	pair := f.login(t, "ana@example.com", "correct horse")

	t.Run("missing", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, "")
		requireAppError(t, err, apperr.CodeUnauthorized, http.StatusUnauthorized)
	})

	t.Run("access token presented", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, pair.AccessToken)
		requireAppError(t, err, apperr.CodeTokenInvalid, http.StatusUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, "abc.def.ghi")
		requireAppError(t, err, apperr.CodeTokenInvalid, http.StatusUnauthorized)
	})

	t.Run("inactive account", func(t *testing.T) {
		inactive := user
		inactive.IsActive = false
		f.users.put(inactive)
		defer f.users.put(user)

		_, err := f.service.Refresh(ctx, pair.RefreshToken)
		requireAppError(t, err, apperr.CodeForbidden, http.StatusForbidden)
	})

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(8 * 24 * time.Hour)
		_, err := f.service.Refresh(ctx, pair.RefreshToken)
		requireAppError(t, err, apperr.CodeTokenExpired, http.StatusUnauthorized)
	})
}

// # Logout

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")
	ctx := context.Background()
	pair := f.login(t, "ana@example.com", "correct horse")

	f.service.Logout(ctx, pair.RefreshToken)

	_, err := f.service.Refresh(ctx, pair.RefreshToken)
	requireAppError(t, err, apperr.CodeTokenInvalid, http.StatusUnauthorized)
}

func TestLogout_IgnoresBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.Logout(ctx, "")
	f.service.Logout(ctx, "garbage")
	assert.Empty(t, f.redis.Keys())

	// Store failures are logged, not returned.
	f.redis.Close()
	refresh, err := f.tokens.IssueRefresh("some-user")
	require.NoError(t, err)
	f.service.Logout(ctx, refresh)
}

// # Profile

func TestMe(t *testing.T) {
	f := newFixture(t)
	user := f.activeUser(t, "ana@example.com", "correct horse")

	found, err := f.service.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", found.Email)

	_, err = f.service.Me(context.Background(), "00000000-0000-7000-8000-000000000000")
	requireAppError(t, err, apperr.CodeNotFound, http.StatusNotFound)
}

func TestDebugVerificationToken(t *testing.T) {
	f := newFixture(t)
	f.activeUser(t, "ana@example.com", "correct horse")

	token, err := f.service.DebugVerificationToken(context.Background(), "ana@example.com")
	require.NoError(t, err)

	email, err := f.emailTokens.Redeem(token, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", email)

	_, err = f.service.DebugVerificationToken(context.Background(), "ghost@example.com")
	requireAppError(t, err, apperr.CodeNotFound, http.StatusNotFound)
}
