// Package handler is the HTTP layer: it parses requests, resolves the
// caller identity from the request context, calls the services, and
// writes JSON. No business rules live here.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/auth"
	"github.com/shafin/minihub/internal/model"
	"github.com/shafin/minihub/internal/service"
)

// UserHandler serves the identity registry and account-link routes.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type registerRequest struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Profile  model.Profile `json:"profile"`
}

// HandleRegister creates an account for the authenticated caller.
//
// HTTP: POST /api/users
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.users.Register(r.Context(), identity, req.Username, req.Email, req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleGet returns any user record by identity; user records are public.
//
// HTTP: GET /api/users/{identity}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), r.PathValue("identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleUpdateProfile replaces the caller's profile wholesale.
//
// HTTP: PUT /api/users/me/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var profile model.Profile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), identity, profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type linkRequest struct {
	Platform  string `json:"platform"`
	AccountID string `json:"accountId"`
}

// HandleLinkAccount appends an external account link for the caller.
//
// HTTP: POST /api/users/me/links
func (h *UserHandler) HandleLinkAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.users.LinkAccount(r.Context(), identity, req.Platform, req.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// HandleLinkedAccounts returns the caller's own links.
//
// HTTP: GET /api/users/me/links
func (h *UserHandler) HandleLinkedAccounts(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	links, err := h.users.LinkedAccounts(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}
