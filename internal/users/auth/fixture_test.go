// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/internal/platform/sec/sectest"
	"github.com/taibuivan/resumehub/pkg/uuid"
)

// # In-memory User Repository

type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]User
	err  error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]User)}
}

func (repository *memoryUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.err != nil {
		return nil, repository.err
	}
	for _, user := range repository.byID {
		if user.Email == email {
			clone := user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (repository *memoryUsers) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.err != nil {
		return nil, repository.err
	}
	user, found := repository.byID[id]
	if !found {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (repository *memoryUsers) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.err != nil {
		return repository.err
	}
	for _, existing := range repository.byID {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	repository.byID[user.ID] = *user
	return nil
}

func (repository *memoryUsers) MarkVerified(_ context.Context, userID string) error {
	return repository.update(userID, func(user *User) {
		user.IsActive = true
		user.IsVerified = true
	})
}

func (repository *memoryUsers) UpdatePassword(_ context.Context, userID, newHash string) error {
	return repository.update(userID, func(user *User) {
		user.PasswordHash = newHash
	})
}

func (repository *memoryUsers) update(userID string, mutate func(*User)) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.byID[userID]
	if !found {
		return ErrUserNotFound
	}
	mutate(&user)
	repository.byID[userID] = user
	return nil
}

func (repository *memoryUsers) get(t *testing.T, email string) User {
	t.Helper()
	user, err := repository.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return *user
}

// put stores user as-is, bypassing Create's duplicate check.
func (repository *memoryUsers) put(user User) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.byID[user.ID] = user
}

// # Dispatcher

type dispatchedEmail struct {
	email string
	link  string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	err  error
	sent []dispatchedEmail
}

func (dispatcher *fakeDispatcher) DispatchActivation(_ context.Context, email, link string) error {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if dispatcher.err != nil {
		return dispatcher.err
	}
	dispatcher.sent = append(dispatcher.sent, dispatchedEmail{email: email, link: link})
	return nil
}

// # Fixture

const testVerificationBaseURL = "https://app.example.com/verify-email/"

type fixture struct {
	service     *Service
	users       *memoryUsers
	redis       *miniredis.Miniredis
	client      *redis.Client
	clock       *sectest.Clock
	hasher      *sec.Hasher
	tokens      *sec.TokenService
	emailTokens *sec.EmailTokenService
	dispatcher  *fakeDispatcher
}

func defaultSettings() Settings {
	return Settings{
		EmailScope:          Scope{Name: "email", MaxAttempts: 5, Lockout: 15 * time.Minute},
		IPScope:             Scope{Name: "ip", MaxAttempts: 30, Lockout: 20 * time.Minute},
		VerificationBaseURL: testVerificationBaseURL,
		EmailTokenMaxAge:    24 * time.Hour,
	}
}

func newFixture(t *testing.T, adjust ...func(*Settings)) *fixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := sectest.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	emailTokens, err := sec.NewEmailTokenService("test-secret", "email-confirmation", clock.Now)
	require.NoError(t, err)

	settings := defaultSettings()
	for _, fn := range adjust {
		fn(&settings)
	}

	f := &fixture{
		users:       newMemoryUsers(),
		redis:       server,
		client:      client,
		clock:       clock,
		hasher:      sectest.Hasher(t),
		tokens:      sectest.TokenService(t, clock),
		emailTokens: emailTokens,
		dispatcher:  &fakeDispatcher{},
	}

	f.service = NewService(Dependencies{
		Users:       f.users,
		Blacklist:   NewTokenBlacklist(client),
		Guard:       NewLoginGuard(client),
		Hasher:      f.hasher,
		Tokens:      f.tokens,
		EmailTokens: f.emailTokens,
		Dispatcher:  f.dispatcher,
		Settings:    settings,
	})

	return f
}

// activeUser stores a verified, active account with the given password.
func (f *fixture) activeUser(t *testing.T, email, password string) User {
	t.Helper()

	hash, err := f.hasher.Hash(context.Background(), password)
	require.NoError(t, err)

	user := User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		IsActive:     true,
		IsVerified:   true,
		Role:         sec.RoleUser,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.users.put(user)
	return user
}

func (f *fixture) login(t *testing.T, email, password string) *TokenPair {
	t.Helper()
	pair, err := f.service.Login(context.Background(), LoginInput{Email: email, Password: password, IPAddress: "203.0.113.10"})
	require.NoError(t, err)
	return pair
}

var errStoreDown = errors.New("store unavailable")
