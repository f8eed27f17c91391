// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
)

// Constructors rather than sentinels: WithKey mutates its receiver.

func errRequestNotFound() *apperr.AppError {
	return apperr.NotFound("Request").WithKey(i18n.KeyRequestNotFound)
}

func errChapterNotFound() *apperr.AppError {
	return apperr.NotFound("Chapter").WithKey(i18n.KeyChapterNotFound)
}

func errNotLockHolder() *apperr.AppError {
	return apperr.Forbidden("You do not have permission to modify this chapter").WithKey(i18n.KeyNotLockHolder)
}

func errExhausted() *apperr.AppError {
	return apperr.Exhausted("No chapters currently available").WithKey(i18n.KeyChaptersExhausted)
}
