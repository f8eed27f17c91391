// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package auth implements the admin login use case.
//
// There are no user accounts: the single operator either presents the static
// ADMIN_TOKEN directly or exchanges the admin password for a short-lived
// session token here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/sec"
)

// PasswordLogin defines the contract for exchanging the admin password for a token.
type PasswordLogin interface {
	// Login returns a signed session token and its expiry, or
	// [sec.ErrInvalidCredential] if the password is wrong.
	Login(password string) (string, time.Time, error)
}

// Service implements the admin login use case.
type Service struct {
	authenticator PasswordLogin
	logger        *slog.Logger
}

// NewService constructs a new [Service] with its authenticator.
func NewService(authenticator PasswordLogin, logger *slog.Logger) *Service {
	return &Service{authenticator: authenticator, logger: logger}
}

// LoginSession is an issued admin session.
type LoginSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login validates the admin password and issues a session token.
//
// # Returns
//   - A pointer to [LoginSession] with the bearer token.
//   - Returns a 403 [apperr.AppError] if the password does not match, without
//     telling a wrong password apart from a disabled password login.
func (service *Service) Login(context context.Context, password string) (*LoginSession, error) {
	token, expiresAt, err := service.authenticator.Login(password)

	if errors.Is(err, sec.ErrInvalidCredential) {
		service.logger.WarnContext(context, "admin_login_failed")
		return nil, apperr.Forbidden("Unauthorized").WithKey(i18n.KeyAdminUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to issue admin session: %w", err)
	}

	service.logger.InfoContext(context, "admin_login_succeeded", slog.Time("expires_at", expiresAt))

	return &LoginSession{Token: token, ExpiresAt: expiresAt}, nil
}
