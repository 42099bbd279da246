package handler

import (
	"log/slog"
	"net/http"

	"github.com/shafin/minihub/internal/service"
)

// CollabHandler serves the collaborator and star routes.
type CollabHandler struct {
	collabs *service.CollabService
	logger  *slog.Logger
}

func NewCollabHandler(collabs *service.CollabService, logger *slog.Logger) *CollabHandler {
	return &CollabHandler{collabs: collabs, logger: logger}
}

type addCollaboratorRequest struct {
	Identity string `json:"identity"`
}

// HandleAddCollaborator lists an identity as collaborator (owner-only).
//
// HTTP: POST /api/repos/{id}/collaborators
func (h *CollabHandler) HandleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req addCollaboratorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.collabs.AddCollaborator(r.Context(), identity, r.PathValue("id"), req.Identity); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetCollaborators returns the collaborator list.
//
// HTTP: GET /api/repos/{id}/collaborators
func (h *CollabHandler) HandleGetCollaborators(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	list, err := h.collabs.Collaborators(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collaborators": list,
		"count":         len(list),
	})
}

// starResponse reports the repository's star count after the operation.
type starResponse struct {
	Stars int `json:"stars"`
}

// HandleStar adds the caller to the stargazer list.
//
// HTTP: PUT /api/repos/{id}/star
func (h *CollabHandler) HandleStar(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	count, err := h.collabs.Star(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, starResponse{Stars: count})
}

// HandleUnstar removes the caller from the stargazer list.
//
// HTTP: DELETE /api/repos/{id}/star
func (h *CollabHandler) HandleUnstar(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	count, err := h.collabs.Unstar(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, starResponse{Stars: count})
}
