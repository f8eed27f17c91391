// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/constants"
	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/respond"
)

// AdminVerifier defines the interface needed to check admin credentials in middleware.
//
// It decouples the middleware from [sec.AdminAuthenticator], allowing tests
// to inject a stub.
type AdminVerifier interface {
	Verify(credential string) bool
}

// RequireAdmin blocks requests that do not carry a valid admin credential.
//
// # Flow
//  1. Extract the credential from 'Authorization: Bearer <credential>'.
//  2. Verify it via [AdminVerifier].
//  3. On failure abort with HTTP 403 Forbidden, otherwise mark the context as admin.
func RequireAdmin(verifier AdminVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			credential := BearerToken(request)

			if !verifier.Verify(credential) {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "admin_access_denied",
					"has_credential", credential != "",
				)
				respond.Error(writer, request, apperr.Forbidden("Unauthorized").WithKey(i18n.KeyAdminUnauthorized))
				return
			}

			next.ServeHTTP(writer, request.WithContext(ctxutil.WithAdmin(request.Context())))
		})
	}
}

// BearerToken returns the credential of an 'Authorization: Bearer' header, or "".
func BearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)

	scheme, credential, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(credential)
}
