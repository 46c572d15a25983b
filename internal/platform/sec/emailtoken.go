// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// EmailVerificationPurpose binds a token to the verification flow.
const EmailVerificationPurpose = "email_verification"

var (
	// ErrVerificationExpired is returned when a verification token is older than its max age.
	ErrVerificationExpired = errors.New("sec: verification token expired")

	// ErrVerificationInvalid is returned when a verification token fails integrity checks.
	ErrVerificationInvalid = errors.New("sec: verification token invalid")
)

type emailClaims struct {
	jwt.RegisteredClaims

	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// EmailTokenService issues HS256 tokens that embed an email address and the
// time of issue. It shares nothing with the RS256 [TokenService].
type EmailTokenService struct {
	key []byte
	now Clock
}

/*
NewEmailTokenService derives the signing key from secret and salt with HKDF-SHA256.

Parameters:
  - secret: string (SECRET_KEY)
  - salt: string (SALT_EMAIL)
  - clock: Clock (time.Now when nil)
*/
func NewEmailTokenService(secret, salt string, clock Clock) (*EmailTokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("sec: email token secret must not be empty")
	}

	key := make([]byte, 32)
	reader := hkdf.New(sha256.New, []byte(secret), []byte(salt), []byte(EmailVerificationPurpose))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("sec: failed to derive email token key: %w", err)
	}

	if clock == nil {
		clock = time.Now
	}
	return &EmailTokenService{key: key, now: clock}, nil
}

// Issue returns a signed token carrying email and the current time.
func (service *EmailTokenService) Issue(email string) (string, error) {
	claims := emailClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(service.now()),
		},
		Email:   email,
		Purpose: EmailVerificationPurpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.key)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign verification token: %w", err)
	}
	return signed, nil
}

/*
Redeem verifies raw and returns the embedded email.

Returns:
  - string: The email the token was issued for
  - error: [ErrVerificationExpired] when older than maxAge, [ErrVerificationInvalid] otherwise
*/
func (service *EmailTokenService) Redeem(raw string, maxAge time.Duration) (string, error) {
	claims := &emailClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) { return service.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", ErrVerificationInvalid
	}

	if claims.Purpose != EmailVerificationPurpose || claims.Email == "" || claims.IssuedAt == nil {
		return "", ErrVerificationInvalid
	}

	if service.now().Sub(claims.IssuedAt.Time) > maxAge {
		return "", ErrVerificationExpired
	}

	return claims.Email, nil
}
