// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/internal/platform/sec/sectest"
)

/*
TestHasher_RoundTrip verifies Hash then Verify succeeds and single-character mutations fail.
*/
func TestHasher_RoundTrip(t *testing.T) {
	hasher := sectest.Hasher(t)
	ctx := context.Background()

	for _, password := range []string{"pw123456", "correct horse battery staple", "ümlaut-пароль"} {
		t.Run(password, func(t *testing.T) {
			encoded, err := hasher.Hash(ctx, password)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

			ok, err := hasher.Verify(ctx, password, encoded)
			require.NoError(t, err)
			assert.True(t, ok)

			runes := []rune(password)
			runes[0]++
			ok, err = hasher.Verify(ctx, string(runes), encoded)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = hasher.Verify(ctx, password+"x", encoded)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

/*
TestHasher_SaltedOutput checks that hashing twice never yields the same string.
*/
func TestHasher_SaltedOutput(t *testing.T) {
	hasher := sectest.Hasher(t)

	first, err := hasher.Hash(context.Background(), "pw123456")
	require.NoError(t, err)
	second, err := hasher.Hash(context.Background(), "pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestHasher_LegacyBcrypt verifies that bcrypt hashes are still accepted and flagged for rehash.
*/
func TestHasher_LegacyBcrypt(t *testing.T) {
	hasher := sectest.Hasher(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := hasher.Verify(ctx, "pw123456", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify(ctx, "pw123457", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, hasher.NeedsRehash(string(legacy)))
}

/*
TestHasher_NeedsRehash reports stale argon2 parameters.
*/
func TestHasher_NeedsRehash(t *testing.T) {
	ctx := context.Background()
	weak := sectest.Hasher(t)

	stronger := sec.MinHashParams
	stronger.Iterations++
	strong, err := sec.NewHasher(stronger, 1)
	require.NoError(t, err)

	encoded, err := weak.Hash(ctx, "pw123456")
	require.NoError(t, err)

	assert.False(t, weak.NeedsRehash(encoded))
	assert.True(t, strong.NeedsRehash(encoded))

	// A stronger hasher still verifies hashes produced with older parameters.
	ok, err := strong.Verify(ctx, "pw123456", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

/*
TestHasher_MalformedHash ensures unknown formats are errors, never a match.
*/
func TestHasher_MalformedHash(t *testing.T) {
	hasher := sectest.Hasher(t)

	for _, encoded := range []string{"", "pw123456", "$argon2id$v=19$m=1$x$y", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$a2V5"} {
		ok, err := hasher.Verify(context.Background(), "pw123456", encoded)
		assert.Error(t, err, encoded)
		assert.False(t, ok)
	}
}

/*
TestNewHasher_RejectsWeakParams checks the security floor is fatal, not silently raised.
*/
func TestNewHasher_RejectsWeakParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sec.HashParams)
	}{
		{"low_memory", func(p *sec.HashParams) { p.MemoryKiB = 1024 }},
		{"low_iterations", func(p *sec.HashParams) { p.Iterations = 1 }},
		{"zero_parallelism", func(p *sec.HashParams) { p.Parallelism = 0 }},
		{"short_salt", func(p *sec.HashParams) { p.SaltLength = 8 }},
		{"short_key", func(p *sec.HashParams) { p.KeyLength = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := sec.DefaultHashParams()
			tt.mutate(&params)

			hasher, err := sec.NewHasher(params, 1)
			assert.Error(t, err)
			assert.Nil(t, hasher)
		})
	}
}

/*
TestHasher_CancelledContext verifies a caller waiting for a worker slot can give up.
*/
func TestHasher_CancelledContext(t *testing.T) {
	hasher := sectest.Hasher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.Hash(ctx, "pw123456")
	assert.ErrorIs(t, err, context.Canceled)
}

/*
TestHasher_VerifyDummy runs without error and never needs a real account.
*/
func TestHasher_VerifyDummy(t *testing.T) {
	hasher := sectest.Hasher(t)
	assert.NoError(t, hasher.VerifyDummy(context.Background(), "anything"))
	assert.NoError(t, hasher.VerifyDummy(context.Background(), "anything-else"))
}

/*
TestHasher_VerifyDummy_SurvivesCancelledCaller checks that a cancelled caller
cannot poison later dummy verifications.
*/
func TestHasher_VerifyDummy_SurvivesCancelledCaller(t *testing.T) {
	hasher := sectest.Hasher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hasher.VerifyDummy(ctx, "anything"), context.Canceled)

	assert.NoError(t, hasher.VerifyDummy(context.Background(), "anything"))
}
