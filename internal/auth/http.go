// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/tikkun/internal/platform/request"
	"github.com/taibuivan/tikkun/internal/platform/respond"
	"github.com/taibuivan/tikkun/internal/platform/validate"
)

// Handler implements the admin authentication endpoint.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// RegisterRoutes mounts the authentication routes on the API router.
//
// # Endpoints
//   - POST /admin/login : Exchanges the admin password for a bearer token.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/admin/login", handler.login)
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Password string `json:"password"`
}

// login handles POST /api/admin/login requests.
//
// # Returns
//   - Writes HTTP 200 OK with the token and its expiry.
//   - Writes HTTP 400 Bad Request for a malformed body or an empty password.
//   - Writes HTTP 403 Forbidden for a wrong password.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	if err := validator.Required("password", input.Password).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	session, err := handler.authService.Login(request.Context(), input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, session)
}
