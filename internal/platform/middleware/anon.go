// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/constants"
	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/respond"
)

// AnonID requires the client-generated reader identity on every request it wraps.
//
// The header value is trimmed; a blank or oversized value is rejected with 400
// before any store access happens.
func AnonID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		anonID := strings.TrimSpace(request.Header.Get(constants.HeaderAnonID))

		if anonID == "" {
			respond.Error(writer, request, apperr.ValidationError("Missing anon ID").WithKey(i18n.KeyAnonIDMissing))
			return
		}

		if utf8.RuneCountInString(anonID) > constants.MaxAnonIDLength {
			respond.Error(writer, request, apperr.ValidationError("Invalid anon ID", apperr.FieldError{
				Field:   constants.HeaderAnonID,
				Message: "Too long",
			}).WithKey(i18n.KeyAnonIDMissing))
			return
		}

		next.ServeHTTP(writer, request.WithContext(ctxutil.WithAnonID(request.Context(), anonID)))
	})
}
