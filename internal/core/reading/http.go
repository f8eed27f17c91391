// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tikkun/internal/platform/middleware"
)

// # Handler Implementation

// Handler implements the HTTP layer for requests, the chapter pool and stats.
type Handler struct {
	service  *Service
	verifier middleware.AdminVerifier
}

// NewHandler constructs a reading [Handler]; verifier guards the admin routes.
func NewHandler(service *Service, verifier middleware.AdminVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

// RegisterRoutes mounts the reading endpoints on the API router.
//
// # Routing Strategy
//
//   - Public: request browsing, creation and statistics.
//   - Reader: pool operations, identified by the X-Anon-ID header.
//   - Admin: destructive operations behind a bearer credential.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	// ## Public Endpoints
	api.Get("/requests", handler.listRequests)
	api.Post("/requests", handler.createRequest)
	api.Get("/requests/{id}", handler.getRequest)
	api.Get("/stats", handler.getStats)

	// ## Reader Endpoints
	api.Group(func(reader chi.Router) {
		reader.Use(middleware.AnonID)

		reader.Get("/request/{id}/next-chapter", handler.nextChapter)
		reader.Post("/chapter/{id}/complete", handler.completeChapter)
		reader.Post("/chapter/{id}/release", handler.releaseChapter)
	})

	// ## Admin Endpoints
	api.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(handler.verifier))

		admin.Delete("/admin/request/{id}", handler.deleteRequest)
	})
}
