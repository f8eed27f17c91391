// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"net/http"

	requestutil "github.com/taibuivan/tikkun/internal/platform/request"
	"github.com/taibuivan/tikkun/internal/platform/respond"
)

// nextChapter handles GET /api/request/{id}/next-chapter.
//
// # Returns
//   - Writes HTTP 200 OK with the chapter now locked to the caller.
//   - Writes HTTP 404 Not Found for an unknown request or an exhausted pool.
func (handler *Handler) nextChapter(writer http.ResponseWriter, request *http.Request) {
	anonID, err := requestutil.RequiredAnonID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.NextChapter(request.Context(), requestutil.ID(request, "id"), anonID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, chapter)
}

// completeChapter handles POST /api/chapter/{id}/complete.
func (handler *Handler) completeChapter(writer http.ResponseWriter, request *http.Request) {
	anonID, err := requestutil.RequiredAnonID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.service.CompleteChapter(request.Context(), requestutil.ID(request, "id"), anonID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Success(writer)
}

// releaseChapter handles POST /api/chapter/{id}/release.
func (handler *Handler) releaseChapter(writer http.ResponseWriter, request *http.Request) {
	anonID, err := requestutil.RequiredAnonID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.ReleaseChapter(request.Context(), requestutil.ID(request, "id"), anonID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, chapter)
}
