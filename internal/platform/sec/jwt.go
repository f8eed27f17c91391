// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token signing,
// credential comparison) from the domain logic. Handlers and middleware only
// see the [AdminAuthenticator].
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of an admin session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionTokens issues and verifies HS256 admin session tokens.
type SessionTokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSessionTokens creates a token service signing with secret.
func NewSessionTokens(secret, issuer string) (*SessionTokens, error) {
	if secret == "" {
		return nil, errors.New("sec: session secret must not be empty")
	}
	return &SessionTokens{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for subject that expires after timeToLive.
func (service *SessionTokens) Issue(subject string, timeToLive time.Duration) (string, time.Time, error) {
	currentTime := service.now()
	expiresAt := currentTime.Add(timeToLive)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Verify checks the signature, issuer and expiry of a token string.
func (service *SessionTokens) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	},
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid token claims")
	}

	return claims, nil
}
