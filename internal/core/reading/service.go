// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
)

// Validation field names reported in error details.
const (
	FieldName           = "name"
	FieldPurpose        = "purpose"
	FieldNotes          = "notes"
	FieldChapterIndices = "chapterIndices"
)

// dateLayout formats the calendar day used by the read counter.
const dateLayout = "2006-01-02"

// ChapterCatalog reports how many content chapters exist, bounding chapter indices.
type ChapterCatalog interface {
	Len() int
}

// Options carries the optional collaborators of a [Service].
type Options struct {
	// Cache holds the stats snapshot; nil reads the store every time.
	Cache StatsCache
	// Catalog bounds chapter indices; nil accepts any non-negative index.
	Catalog ChapterCatalog
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Location decides where a day starts for the "today" counter; defaults to UTC.
	Location *time.Location
}

// # Service Layer

// Service orchestrates requests, chapter allocation and statistics.
type Service struct {
	repository Repository
	cache      StatsCache
	catalog    ChapterCatalog
	now        func() time.Time
	location   *time.Location
	logger     *slog.Logger
}

// NewService constructs a new [Service] around its repository.
func NewService(repository Repository, logger *slog.Logger, options Options) *Service {
	service := &Service{
		repository: repository,
		cache:      options.Cache,
		catalog:    options.Catalog,
		now:        options.Clock,
		location:   options.Location,
		logger:     logger,
	}

	if service.now == nil {
		service.now = time.Now
	}
	if service.location == nil {
		service.location = time.UTC
	}

	return service
}

// today returns the counter date of instant in the configured time zone.
func (service *Service) today(instant time.Time) string {
	return instant.In(service.location).Format(dateLayout)
}

// log returns the service logger tagged with the HTTP request id as trace_id, when there is one.
func (service *Service) log(ctx context.Context) *slog.Logger {
	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		return service.logger.With(slog.String("trace_id", requestID))
	}
	return service.logger
}

// invalidateStats drops the cached snapshot after a change that affects it.
func (service *Service) invalidateStats(ctx context.Context) {
	if service.cache == nil {
		return
	}
	if err := service.cache.Invalidate(ctx); err != nil {
		service.log(ctx).WarnContext(ctx, "stats_cache_invalidate_failed", slog.Any("error", err))
	}
}
