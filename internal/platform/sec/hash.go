// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// # Hash Parameters

// HashParams configures the argon2id work factor.
type HashParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// MinHashParams is the floor below which [NewHasher] refuses to start.
var MinHashParams = HashParams{
	MemoryKiB:   19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

// DefaultHashParams returns the production work factor.
func DefaultHashParams() HashParams {
	return HashParams{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate reports an error if any parameter is below [MinHashParams].
func (p HashParams) Validate() error {
	switch {
	case p.MemoryKiB < MinHashParams.MemoryKiB:
		return fmt.Errorf("sec: argon2 memory %d KiB is below the minimum %d KiB", p.MemoryKiB, MinHashParams.MemoryKiB)
	case p.Iterations < MinHashParams.Iterations:
		return fmt.Errorf("sec: argon2 iterations %d is below the minimum %d", p.Iterations, MinHashParams.Iterations)
	case p.Parallelism < MinHashParams.Parallelism:
		return fmt.Errorf("sec: argon2 parallelism must be at least %d", MinHashParams.Parallelism)
	case p.SaltLength < MinHashParams.SaltLength:
		return fmt.Errorf("sec: argon2 salt length %d is below the minimum %d", p.SaltLength, MinHashParams.SaltLength)
	case p.KeyLength < MinHashParams.KeyLength:
		return fmt.Errorf("sec: argon2 key length %d is below the minimum %d", p.KeyLength, MinHashParams.KeyLength)
	}
	return nil
}

var (
	// ErrMalformedHash is returned when a stored hash matches no supported format.
	ErrMalformedHash = errors.New("sec: malformed password hash")

	// ErrIncompatibleVersion is returned for argon2 hashes produced by another algorithm revision.
	ErrIncompatibleVersion = errors.New("sec: incompatible argon2 version")
)

// # Hasher

// Hasher produces argon2id hashes in PHC string format and verifies both
// argon2id and legacy bcrypt hashes.
//
// # Concurrency
//
// Every hash computation acquires a slot from a weighted semaphore, so at most
// `concurrency` derivations run at once. Callers queue on their own context.
type Hasher struct {
	params HashParams
	gate   *semaphore.Weighted

	// dummyHash is derived once at construction, outside any request.
	dummyHash string
}

/*
NewHasher builds a [Hasher] after checking params against [MinHashParams].

Parameters:
  - params: HashParams
  - concurrency: int (maximum parallel derivations, GOMAXPROCS when <= 0)

Returns:
  - *Hasher: Ready-to-use hasher
  - error: Parameters below the security floor, or a failed dummy derivation
*/
func NewHasher(params HashParams, concurrency int) (*Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	hasher := &Hasher{
		params: params,
		gate:   semaphore.NewWeighted(int64(concurrency)),
	}

	dummy, err := hasher.Hash(context.Background(), "resumehub-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("sec: derive dummy hash: %w", err)
	}
	hasher.dummyHash = dummy

	return hasher, nil
}

// Hash derives an argon2id hash of plain and encodes it in PHC format.
func (hasher *Hasher) Hash(context context.Context, plain string) (string, error) {
	salt := make([]byte, hasher.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sec: failed to read salt: %w", err)
	}

	key, err := hasher.derive(context, []byte(plain), salt, hasher.params)
	if err != nil {
		return "", err
	}

	return encodeArgon2(hasher.params, salt, key), nil
}

/*
Verify compares plain against an encoded hash.

Description: argon2id hashes are re-derived with their embedded parameters and
compared in constant time. bcrypt hashes ($2a$, $2b$, $2y$) are checked by the
bcrypt package itself.

Returns:
  - bool: true when the password matches
  - error: Malformed hash, unsupported format, or context cancellation
*/
func (hasher *Hasher) Verify(context context.Context, plain, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		params, salt, key, err := decodeArgon2(encoded)
		if err != nil {
			return false, err
		}
		candidate, err := hasher.derive(context, []byte(plain), salt, params)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare(key, candidate) == 1, nil

	case isBcrypt(encoded):
		if err := hasher.acquire(context); err != nil {
			return false, err
		}
		defer hasher.gate.Release(1)

		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
		}
		return true, nil
	}

	return false, ErrMalformedHash
}

// VerifyDummy spends the same work as a real verification against a hash that
// never matches. It is used when no account exists for the presented email.
func (hasher *Hasher) VerifyDummy(context context.Context, plain string) error {
	_, err := hasher.Verify(context, plain, hasher.dummyHash)
	return err
}

// NeedsRehash reports whether encoded is a legacy bcrypt hash or an argon2id
// hash produced with parameters other than the current ones.
func (hasher *Hasher) NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	params, _, key, err := decodeArgon2(encoded)
	if err != nil {
		return true
	}
	current := hasher.params
	return params.MemoryKiB != current.MemoryKiB ||
		params.Iterations != current.Iterations ||
		params.Parallelism != current.Parallelism ||
		uint32(len(key)) != current.KeyLength
}

// # Internals

func (hasher *Hasher) derive(context context.Context, plain, salt []byte, params HashParams) ([]byte, error) {
	if err := hasher.acquire(context); err != nil {
		return nil, err
	}
	defer hasher.gate.Release(1)

	return argon2.IDKey(plain, salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength), nil
}

func (hasher *Hasher) acquire(context context.Context) error {
	if err := hasher.gate.Acquire(context, 1); err != nil {
		return fmt.Errorf("sec: hash worker unavailable: %w", err)
	}
	return nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

// encodeArgon2 renders $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<key>.
func encodeArgon2(params HashParams, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.MemoryKiB, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeArgon2(encoded string) (HashParams, []byte, []byte, error) {
	var params HashParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, ErrMalformedHash
	}

	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))
	return params, salt, key, nil
}
