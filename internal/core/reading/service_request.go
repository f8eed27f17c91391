// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/validate"
	"github.com/taibuivan/tikkun/pkg/textfold"
	"github.com/taibuivan/tikkun/pkg/uuid"
)

// CreateRequestInput holds the data required to open a new request.
type CreateRequestInput struct {
	Name           string
	Purpose        string
	Notes          string
	ChapterIndices []int
}

/*
CreateRequest validates the input and persists the request with one unread
chapter per index.

Parameters:
  - context: context.Context
  - input: CreateRequestInput

Returns:
  - *Request: The created request
  - error: Validation or persistence errors
*/
func (service *Service) CreateRequest(context context.Context, input CreateRequestInput) (*Request, error) {
	name := textfold.Clean(input.Name)
	notes := strings.TrimSpace(input.Notes)

	// Business attribute validation
	validator := &validate.Validator{}
	validator.
		Required(FieldName, name).
		MaxLen(FieldName, name, MaxNameLength).
		Key(i18n.KeyInvalidName)
	validator.
		OneOf(FieldPurpose, input.Purpose, Purposes...).
		Key(i18n.KeyInvalidPurpose)
	validator.MaxLen(FieldNotes, notes, MaxNotesLength)
	service.validateIndices(validator, input.ChapterIndices)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Entity construction
	request := &Request{
		ID:             uuid.New(),
		Name:           name,
		NameFolded:     textfold.Fold(name),
		Purpose:        input.Purpose,
		Notes:          notes,
		ChapterIndices: append([]int(nil), input.ChapterIndices...),
		CreatedAt:      service.now().UTC(),
	}

	chapters := make([]*Chapter, len(request.ChapterIndices))
	for position, number := range request.ChapterIndices {
		chapters[position] = &Chapter{
			ID:        uuid.New(),
			RequestID: request.ID,
			Number:    number,
			Status:    StatusUnread,
		}
	}

	if err := service.repository.CreateRequest(context, request, chapters); err != nil {
		return nil, err
	}

	service.invalidateStats(context)

	service.log(context).InfoContext(context, "request_created",
		slog.String("request_id", request.ID),
		slog.String("purpose", request.Purpose),
		slog.Int("chapters", len(chapters)),
	)

	return request, nil
}

// validateIndices requires a non-empty list of distinct, in-range indices.
func (service *Service) validateIndices(validator *validate.Validator, indices []int) {
	if len(indices) == 0 {
		validator.Custom(FieldChapterIndices, true, "At least one chapter is required").Key(i18n.KeyInvalidChapters)
		return
	}

	seen := make(map[int]struct{}, len(indices))
	for position, index := range indices {
		field := fmt.Sprintf("%s[%d]", FieldChapterIndices, position)

		if _, duplicate := seen[index]; duplicate {
			validator.Custom(field, true, fmt.Sprintf("Chapter %d is listed more than once", index))
		}
		seen[index] = struct{}{}

		validator.Custom(field, index < 0, "Chapter index cannot be negative")

		if service.catalog != nil && index >= service.catalog.Len() {
			validator.Custom(field, true, fmt.Sprintf("Chapter index must be below %d", service.catalog.Len()))
		}
	}

	validator.Key(i18n.KeyInvalidChapters)
}

/*
ListRequests returns requests with their current-cycle progress, newest first.

Parameters:
  - context: context.Context
  - search: string (Case-insensitive name substring, may be empty)

Returns:
  - []*RequestSummary: Matching requests
  - error: Storage failures
*/
func (service *Service) ListRequests(context context.Context, search string) ([]*RequestSummary, error) {
	return service.repository.ListRequests(context, RequestFilter{NameFolded: textfold.Fold(search)})
}

// GetRequest retrieves a request and its chapter indices.
func (service *Service) GetRequest(context context.Context, id string) (*Request, error) {
	if !uuid.Valid(id) {
		return nil, errRequestNotFound()
	}
	return service.repository.FindRequest(context, id)
}

/*
DeleteRequest removes a request together with its chapters.

The caller must have passed the admin gate; see [ctxutil.WithAdmin].

Returns:
  - error: Forbidden without admin context, NotFound if the request does not exist
*/
func (service *Service) DeleteRequest(context context.Context, id string) error {
	if !ctxutil.IsAdmin(context) {
		return apperr.Forbidden("Unauthorized").WithKey(i18n.KeyAdminUnauthorized)
	}
	if !uuid.Valid(id) {
		return errRequestNotFound()
	}

	if err := service.repository.DeleteRequest(context, id); err != nil {
		return err
	}

	service.invalidateStats(context)
	service.log(context).InfoContext(context, "request_deleted", slog.String("request_id", id))

	return nil
}
