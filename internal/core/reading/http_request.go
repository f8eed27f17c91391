// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	requestutil "github.com/taibuivan/tikkun/internal/platform/request"
	"github.com/taibuivan/tikkun/internal/platform/respond"
)

// createRequestBody is the JSON payload of POST /requests.
//
// Chapter indices are decoded as numbers first so that fractional or quoted
// values are reported as a field error rather than a malformed body.
type createRequestBody struct {
	Name           string        `json:"name"`
	Purpose        string        `json:"purpose"`
	Notes          string        `json:"notes"`
	ChapterIndices []json.Number `json:"chapterIndices"`
}

func (body createRequestBody) indices() ([]int, error) {
	indices := make([]int, len(body.ChapterIndices))
	var details []apperr.FieldError

	for position, raw := range body.ChapterIndices {
		index, err := strconv.Atoi(raw.String())
		if err != nil {
			details = append(details, apperr.FieldError{
				Field:   fmt.Sprintf("%s[%d]", FieldChapterIndices, position),
				Message: "Must be an integer",
			})
			continue
		}
		indices[position] = index
	}

	if len(details) > 0 {
		return nil, apperr.ValidationError("Validation failed", details...).WithKey(i18n.KeyInvalidChapters)
	}
	return indices, nil
}

func (handler *Handler) listRequests(writer http.ResponseWriter, request *http.Request) {
	requests, err := handler.service.ListRequests(request.Context(), request.URL.Query().Get("search"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, requests)
}

// createRequest handles POST /api/requests.
//
// # Returns
//   - Writes HTTP 201 Created with the new request.
//   - Writes HTTP 400 Bad Request if validation rules fail.
func (handler *Handler) createRequest(writer http.ResponseWriter, request *http.Request) {
	var body createRequestBody
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	indices, err := body.indices()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreateRequest(request.Context(), CreateRequestInput{
		Name:           body.Name,
		Purpose:        body.Purpose,
		Notes:          body.Notes,
		ChapterIndices: indices,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

func (handler *Handler) getRequest(writer http.ResponseWriter, request *http.Request) {
	found, err := handler.service.GetRequest(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

func (handler *Handler) deleteRequest(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteRequest(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Success(writer)
}
