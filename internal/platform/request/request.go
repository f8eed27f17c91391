// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/constants"
	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/validate"
)

/*
DecodeJSON reads at most [constants.MaxRequestBodyBytes] of the request body
and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (Told to close the connection on an oversized body)
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: 413 if the body is too large, validate.InvalidJSON if decoding fails
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target interface{}) error {
	body := http.MaxBytesReader(writer, request.Body, constants.MaxRequestBodyBytes)

	if err := json.NewDecoder(body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.PayloadTooLarge("Request body is too large").WithKey(i18n.KeyPayloadTooLarge)
		}
		return validate.InvalidJSON()
	}
	return nil
}

/*
ID retrieves a named URL parameter from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
RequiredAnonID returns the reader identity attached by the AnonID middleware.

Returns:
  - string: The trimmed X-Anon-ID value
  - error: 400 validation error if the identity is absent
*/
func RequiredAnonID(request *http.Request) (string, error) {
	anonID := ctxutil.GetAnonID(request.Context())
	if anonID == "" {
		return "", apperr.ValidationError("Missing anon ID").WithKey(i18n.KeyAnonIDMissing)
	}
	return anonID, nil
}
