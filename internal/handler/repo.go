package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/auth"
	"github.com/shafin/minihub/internal/service"
)

// RepoHandler serves the repository store routes.
type RepoHandler struct {
	repos  *service.RepoService
	logger *slog.Logger
}

func NewRepoHandler(repos *service.RepoService, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{repos: repos, logger: logger}
}

// caller pulls the authenticated identity out of the context. Routes are
// behind RequireAuth, so a miss here means a wiring bug, but we still
// answer 401 rather than panic.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return "", false
	}
	return identity, true
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
	License     string `json:"license"`
}

// HandleCreate creates a repository owned by the caller.
//
// HTTP: POST /api/repos
func (h *RepoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req createRepoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	repo, err := h.repos.Create(r.Context(), identity, req.Name, req.Description, req.IsPrivate, req.License)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

// HandleGet returns a repository snapshot with its file list.
//
// HTTP: GET /api/repos/{id}
func (h *RepoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	repo, err := h.repos.Get(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

type uploadRequest struct {
	Path          string `json:"path"`
	Content       []byte `json:"content"` // base64 in JSON, raw bytes here
	CommitMessage string `json:"commitMessage"`
}

// HandleUploadFile writes a file into the repository.
//
// HTTP: POST /api/repos/{id}/files
func (h *RepoHandler) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.repos.UploadFile(r.Context(), identity, r.PathValue("id"), req.Path, req.Content, req.CommitMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleGetFile returns one file entry.
//
// HTTP: GET /api/repos/{id}/file?path=...
func (h *RepoHandler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	entry, err := h.repos.GetFile(r.Context(), identity, r.PathValue("id"), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleListFiles lists file entries under an optional prefix.
//
// HTTP: GET /api/repos/{id}/files?prefix=...
func (h *RepoHandler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	res, err := h.repos.ListFiles(r.Context(), identity, r.PathValue("id"), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type forkRequest struct {
	Name string `json:"name"`
}

// HandleFork creates an independent public copy owned by the caller.
//
// HTTP: POST /api/repos/{id}/fork
func (h *RepoHandler) HandleFork(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	// Body is optional — an empty body means "default fork name".
	var req forkRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	fork, err := h.repos.Fork(r.Context(), identity, r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fork)
}

// HandleList lists a user's repositories with pagination. With no
// username parameter it lists the caller's own.
//
// HTTP: GET /api/repos?username=&page=&limit=
func (h *RepoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	res, err := h.repos.ListForUser(r.Context(), identity, q.Get("username"), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
