// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. Resource services only need [Verifier] and the public key;
// the auth service holds the full [TokenService].
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/resumehub/pkg/uuid"
)

// TokenTypeRefresh is the discriminator carried by refresh tokens only.
const TokenTypeRefresh = "refresh"

var (
	// ErrTokenExpired is returned when a token's exp claim is in the past.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid covers bad signatures, malformed payloads, wrong
	// algorithms and tokens of the wrong type.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// # Claims

// Claims is the payload of both token kinds.
//
// Access tokens carry Roles and no TokenType. Refresh tokens carry
// TokenType "refresh" and no Roles.
type Claims struct {
	jwt.RegisteredClaims

	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// HasRole reports whether role is present in the roles claim.
func (c *Claims) HasRole(role UserRole) bool {
	return slices.Contains(c.Roles, string(role))
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool { return c.TokenType == TokenTypeRefresh }

// IsAccess reports whether the claims belong to an access token.
func (c *Claims) IsAccess() bool { return c.TokenType == "" && len(c.Roles) > 0 }

// # Options

// Clock returns the current time. Tests replace it to move across expiry.
type Clock func() time.Time

// Option customizes a [Verifier] or [TokenService].
type Option func(*Verifier)

// WithClock overrides the time source used for issuing and validating.
func WithClock(clock Clock) Option {
	return func(verifier *Verifier) { verifier.now = clock }
}

// # Verifier

// Verifier validates RS256 tokens with the public key only.
type Verifier struct {
	publicKey *rsa.PublicKey
	issuer    string
	now       Clock
}

// NewVerifier parses a PEM encoded RSA public key.
func NewVerifier(publicKeyPEM []byte, issuer string, options ...Option) (*Verifier, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	verifier := &Verifier{publicKey: publicKey, issuer: issuer, now: time.Now}
	for _, option := range options {
		option(verifier)
	}
	return verifier, nil
}

/*
Validate checks signature, algorithm, issuer and expiry of a token of either kind.

Returns:
  - *Claims: The verified payload
  - error: [ErrTokenExpired] or [ErrTokenInvalid]
*/
func (verifier *Verifier) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return verifier.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(verifier.issuer),
		jwt.WithTimeFunc(verifier.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// ValidateAccess validates raw and rejects anything that is not an access token.
func (verifier *Verifier) ValidateAccess(raw string) (*Claims, error) {
	claims, err := verifier.Validate(raw)
	if err != nil {
		return nil, err
	}
	if !claims.IsAccess() {
		return nil, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	return claims, nil
}

// ValidateRefresh validates raw and rejects anything that is not a refresh token.
func (verifier *Verifier) ValidateRefresh(raw string) (*Claims, error) {
	claims, err := verifier.Validate(raw)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefresh() || len(claims.Roles) > 0 {
		return nil, fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}
	return claims, nil
}

// Remaining returns how long claims stay valid from now. It is zero or
// negative once the token has expired.
func (verifier *Verifier) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(verifier.now())
}

// Now exposes the verifier clock.
func (verifier *Verifier) Now() time.Time { return verifier.now() }

// # Token Service

// TokenConfig carries key material and lifetimes for [NewTokenService].
type TokenConfig struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService issues and validates RS256 access and refresh tokens.
type TokenService struct {
	*Verifier

	privateKey *rsa.PrivateKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService parses both keys and checks that they form a pair.
func NewTokenService(cfg TokenConfig, options ...Option) (*TokenService, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("sec: token lifetimes must be positive")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	verifier, err := NewVerifier(cfg.PublicKeyPEM, cfg.Issuer, options...)
	if err != nil {
		return nil, err
	}

	if !privateKey.PublicKey.Equal(verifier.publicKey) {
		return nil, fmt.Errorf("sec: public key does not match private key")
	}

	return &TokenService{
		Verifier:   verifier,
		privateKey: privateKey,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssueAccess signs {sub, roles, iat, exp, jti} with the private key.
func (service *TokenService) IssueAccess(subject string, roles []string) (string, error) {
	if len(roles) == 0 {
		return "", fmt.Errorf("sec: access token requires at least one role")
	}
	return service.sign(Claims{
		RegisteredClaims: service.registered(subject, service.accessTTL),
		Roles:            roles,
	})
}

// IssueRefresh signs {sub, token_type="refresh", iat, exp, jti} with the private key.
func (service *TokenService) IssueRefresh(subject string) (string, error) {
	return service.sign(Claims{
		RegisteredClaims: service.registered(subject, service.refreshTTL),
		TokenType:        TokenTypeRefresh,
	})
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

func (service *TokenService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := service.now()
	return jwt.RegisteredClaims{
		ID:        uuid.New(),
		Subject:   subject,
		Issuer:    service.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (service *TokenService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signed, nil
}

// # Key Material

// LoadKeyMaterial returns PEM bytes from path when set, otherwise from inline.
// Inline values may use literal "\n" sequences in place of newlines.
func LoadKeyMaterial(path, inline string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sec: failed to read key from %s: %w", path, err)
		}
		return data, nil
	}
	if inline == "" {
		return nil, fmt.Errorf("sec: no key path or inline key configured")
	}
	return []byte(strings.ReplaceAll(inline, `\n`, "\n")), nil
}
