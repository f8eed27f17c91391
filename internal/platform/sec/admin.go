// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/subtle"
	"errors"
	"time"
)

// ErrInvalidCredential is returned for any rejected admin credential or password.
var ErrInvalidCredential = errors.New("sec: invalid admin credential")

// AdminAuthenticator accepts either the static admin token or a session token
// obtained through [AdminAuthenticator.Login].
type AdminAuthenticator struct {
	staticToken  string
	passwordHash string
	sessions     *SessionTokens
	subject      string
	sessionTTL   time.Duration
}

// NewAdminAuthenticator builds the authenticator.
//
// sessions may be nil, in which case only the static token is accepted and
// Login always fails.
func NewAdminAuthenticator(staticToken, passwordHash string, sessions *SessionTokens, subject string, sessionTTL time.Duration) *AdminAuthenticator {
	return &AdminAuthenticator{
		staticToken:  staticToken,
		passwordHash: passwordHash,
		sessions:     sessions,
		subject:      subject,
		sessionTTL:   sessionTTL,
	}
}

// Verify reports whether credential grants admin access.
func (a *AdminAuthenticator) Verify(credential string) bool {
	if credential == "" {
		return false
	}

	if a.staticToken != "" && subtle.ConstantTimeCompare([]byte(credential), []byte(a.staticToken)) == 1 {
		return true
	}

	if a.sessions == nil {
		return false
	}

	claims, err := a.sessions.Verify(credential)
	return err == nil && claims.Subject == a.subject
}

// Login exchanges the admin password for a session token.
func (a *AdminAuthenticator) Login(password string) (string, time.Time, error) {
	if a.sessions == nil || a.passwordHash == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredential
	}

	if !CheckPasswordHash(password, a.passwordHash) {
		return "", time.Time{}, ErrInvalidCredential
	}

	return a.sessions.Issue(a.subject, a.sessionTTL)
}
