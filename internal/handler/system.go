package handler

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/auth"
	"github.com/shafin/minihub/internal/store"
)

// SystemHandler serves the health and diagnostics probes and, when a
// token service is configured, the dev token endpoint.
type SystemHandler struct {
	store   *store.Store
	tokens  *auth.TokenService // nil when running with header identities
	logger  *slog.Logger
	started time.Time
}

func NewSystemHandler(st *store.Store, tokens *auth.TokenService, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		store:   st,
		tokens:  tokens,
		logger:  logger,
		started: time.Now(),
	}
}

// HandleHealth is the liveness probe. It is unauthenticated.
//
// HTTP: GET /healthz
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// statsResponse is the fixed-shape diagnostics record: store table sizes
// plus process memory numbers.
type statsResponse struct {
	store.Stats
	Goroutines int    `json:"goroutines"`
	HeapBytes  uint64 `json:"heapBytes"`
	Uptime     string `json:"uptime"`
}

// HandleStats is the memory/diagnostics probe.
//
// HTTP: GET /api/stats
func (h *SystemHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, statsResponse{
		Stats:      h.store.Stats(),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
		Uptime:     time.Since(h.started).String(),
	})
}

type tokenRequest struct {
	Identity string `json:"identity"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// HandleDevToken mints a bearer token for a stated identity. This stands
// in for the external identity provider during local development; the
// route is only registered when a JWT secret is configured.
//
// HTTP: POST /auth/token
func (h *SystemHandler) HandleDevToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Identity == "" {
		writeError(w, apperror.ValidationFailed("identity", "identity is required"))
		return
	}

	token, err := h.tokens.Generate(req.Identity, 24*time.Hour)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
