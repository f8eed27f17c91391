// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	requestutil "github.com/taibuivan/tikkun/internal/platform/request"
	"github.com/taibuivan/tikkun/internal/platform/respond"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/chapters", handler.listChapters)
	router.Get("/chapters/{index}", handler.getChapter)
}

func (handler *Handler) listChapters(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.catalog.All())
}

func (handler *Handler) getChapter(writer http.ResponseWriter, request *http.Request) {
	index, err := strconv.Atoi(requestutil.ID(request, "index"))
	if err != nil {
		respond.Error(writer, request, apperr.NotFound("Chapter").WithKey(i18n.KeyChapterNotFound))
		return
	}

	entry, ok := handler.catalog.Get(index)
	if !ok {
		respond.Error(writer, request, apperr.NotFound("Chapter").WithKey(i18n.KeyChapterNotFound))
		return
	}
	respond.OK(writer, entry)
}
