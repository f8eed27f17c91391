// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package i18n renders client-facing error messages in the caller's language.

The reading community is Hebrew-speaking, so Hebrew is the default when the
Accept-Language header is missing or names nothing we support. English is kept
for operators and API consumers.

Usage:

	tag := i18n.FromRequest(request)
	msg := i18n.Message(tag, i18n.KeyRequestNotFound, "Request not found")
*/
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// # Message Keys

const (
	KeyValidationFailed  = "validation_failed"
	KeyInvalidJSON       = "invalid_json"
	KeyAnonIDMissing     = "anon_id_missing"
	KeyInvalidName       = "invalid_name"
	KeyInvalidPurpose    = "invalid_purpose"
	KeyInvalidChapters   = "invalid_chapter_indices"
	KeyRequestNotFound   = "request_not_found"
	KeyChapterNotFound   = "chapter_not_found"
	KeyNotLockHolder     = "not_lock_holder"
	KeyChaptersExhausted = "chapters_exhausted"
	KeyAdminUnauthorized = "admin_unauthorized"
	KeyRateLimited       = "rate_limited"
	KeyPayloadTooLarge   = "payload_too_large"
	KeyInternal          = "internal_error"
)

// # Language Matching

var (
	// supported lists the languages we have catalogs for. The first entry is the fallback.
	supported = []language.Tag{language.Hebrew, language.English}
	matcher   = language.NewMatcher(supported)
)

var catalog = map[language.Tag]map[string]string{
	language.Hebrew: {
		KeyValidationFailed:  "הנתונים שנשלחו אינם תקינים",
		KeyInvalidJSON:       "גוף הבקשה אינו JSON תקין",
		KeyAnonIDMissing:     "חסר מזהה אנונימי",
		KeyInvalidName:       "חסר שם תקין לבקשה",
		KeyInvalidPurpose:    "מטרה לא תקינה",
		KeyInvalidChapters:   "חובה לשלוח רשימת פרקים תקינה (מספרים)",
		KeyRequestNotFound:   "הבקשה לא נמצאה",
		KeyChapterNotFound:   "הפרק לא נמצא",
		KeyNotLockHolder:     "אין לך הרשאה לעדכן פרק זה",
		KeyChaptersExhausted: "אין כרגע פרקים זמינים נוספים",
		KeyAdminUnauthorized: "אין הרשאת מנהל",
		KeyRateLimited:       "יותר מדי בקשות, נסו שוב בעוד רגע",
		KeyPayloadTooLarge:   "גוף הבקשה גדול מדי",
		KeyInternal:          "אירעה שגיאה בלתי צפויה",
	},
	language.English: {
		KeyValidationFailed:  "Validation failed",
		KeyInvalidJSON:       "Invalid JSON payload",
		KeyAnonIDMissing:     "Missing anon ID",
		KeyInvalidName:       "A valid request name is required",
		KeyInvalidPurpose:    "Invalid purpose",
		KeyInvalidChapters:   "A valid list of chapter numbers is required",
		KeyRequestNotFound:   "Request not found",
		KeyChapterNotFound:   "Chapter not found",
		KeyNotLockHolder:     "You do not have permission to modify this chapter",
		KeyChaptersExhausted: "No chapters currently available",
		KeyAdminUnauthorized: "Unauthorized",
		KeyRateLimited:       "Too many requests, try again shortly",
		KeyPayloadTooLarge:   "Request body is too large",
		KeyInternal:          "An unexpected error occurred",
	},
}

// FromRequest picks the best supported language for the Accept-Language header.
func FromRequest(request *http.Request) language.Tag {
	return Match(request.Header.Get("Accept-Language"))
}

// Match resolves an Accept-Language value against the supported languages.
func Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return supported[0]
	}

	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return supported[0]
	}

	_, index, confidence := matcher.Match(desired...)
	if confidence == language.No {
		return supported[0]
	}
	return supported[index]
}

// Message returns the translation of key for tag, or fallback when none exists.
func Message(tag language.Tag, key, fallback string) string {
	if messages, ok := catalog[tag]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	return fallback
}
