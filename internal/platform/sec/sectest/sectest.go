// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sectest provides key material, clocks and fast hashers for tests.
package sectest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/resumehub/internal/platform/constants"
	"github.com/taibuivan/resumehub/internal/platform/sec"
)

// KeyPair generates a 2048-bit RSA key pair and returns both halves as PEM.
func KeyPair(t testing.TB) (privatePEM, publicPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	return privatePEM, publicPEM
}

// Clock is a manually advanced time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

// Now returns the current fake time.
func (clock *Clock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

// Advance moves the clock forward by d.
func (clock *Clock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(d)
}

// TokenService builds a [sec.TokenService] with a fresh key pair, a 30 minute
// access TTL and a 7 day refresh TTL.
func TokenService(t testing.TB, clock *Clock) *sec.TokenService {
	t.Helper()

	privatePEM, publicPEM := KeyPair(t)
	service, err := sec.NewTokenService(sec.TokenConfig{
		PrivateKeyPEM: privatePEM,
		PublicKeyPEM:  publicPEM,
		Issuer:        constants.AuthIssuer,
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, sec.WithClock(clock.Now))
	require.NoError(t, err)
	return service
}

// Hasher returns a hasher running at the minimum accepted work factor.
func Hasher(t testing.TB) *sec.Hasher {
	t.Helper()

	hasher, err := sec.NewHasher(sec.MinHashParams, 4)
	require.NoError(t, err)
	return hasher
}
