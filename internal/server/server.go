// Package server wires the application together: store, snapshot
// database, services, handlers, routes, and the run loop with graceful
// shutdown. It is the composition root — nothing else constructs
// cross-layer dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/shafin/minihub/internal/auth"
	"github.com/shafin/minihub/internal/handler"
	"github.com/shafin/minihub/internal/middleware"
	"github.com/shafin/minihub/internal/ratelimit"
	"github.com/shafin/minihub/internal/service"
	"github.com/shafin/minihub/internal/snapshot"
	"github.com/shafin/minihub/internal/store"
)

// Config holds server configuration, assembled in cmd/server from the
// environment.
type Config struct {
	Port             int
	DBPath           string        // snapshot database path, ":memory:" allowed
	JWTSecret        string        // empty enables the X-Identity dev fallback
	SnapshotInterval time.Duration // 0 disables periodic snapshots
}

// Server owns the router, the live store, and the snapshot database. The
// snapshot database is closed during shutdown, after the final snapshot.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  *store.Store
	snaps  *snapshot.DB
}

// New builds the full dependency chain and restores the latest snapshot
// into the store, if one exists.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	snaps, err := snapshot.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	st := store.New()
	snap, err := snaps.Load(context.Background())
	if err != nil {
		snaps.Close()
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if snap != nil {
		st.Restore(snap)
		logger.Info("state restored from snapshot",
			slog.Int("users", len(snap.Users)),
			slog.Int("repositories", len(snap.Repos)),
		)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st,
		snaps:  snaps,
	}

	if err := s.setupRoutes(); err != nil {
		snaps.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	limiter := ratelimit.New(ratelimit.DefaultMaxActions, ratelimit.DefaultWindow)
	users := service.NewUserService(s.store, limiter, s.logger)
	repos := service.NewRepoService(s.store, limiter, s.logger)
	collabs := service.NewCollabService(s.store, limiter, s.logger)

	userHandler := handler.NewUserHandler(users, s.logger)
	repoHandler := handler.NewRepoHandler(repos, s.logger)
	collabHandler := handler.NewCollabHandler(collabs, s.logger)

	// The identity middleware depends on deployment mode: bearer JWTs
	// when a secret is configured, the X-Identity dev header otherwise.
	var tokens *auth.TokenService
	identity := auth.HeaderIdentity()
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		identity = auth.RequireAuth(tokens)
	} else {
		s.logger.Warn("JWT_SECRET not set — accepting X-Identity headers (dev mode)")
	}

	systemHandler := handler.NewSystemHandler(s.store, tokens, s.logger)

	s.router.Get("/healthz", systemHandler.HandleHealth)
	if tokens != nil {
		s.router.Post("/auth/token", systemHandler.HandleDevToken)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(identity)

		r.Get("/stats", systemHandler.HandleStats)

		r.Post("/users", userHandler.HandleRegister)
		r.Get("/users/{identity}", userHandler.HandleGet)
		r.Put("/users/me/profile", userHandler.HandleUpdateProfile)
		r.Post("/users/me/links", userHandler.HandleLinkAccount)
		r.Get("/users/me/links", userHandler.HandleLinkedAccounts)

		r.Post("/repos", repoHandler.HandleCreate)
		r.Get("/repos", repoHandler.HandleList)
		r.Get("/repos/{id}", repoHandler.HandleGet)
		r.Post("/repos/{id}/files", repoHandler.HandleUploadFile)
		r.Get("/repos/{id}/files", repoHandler.HandleListFiles)
		r.Get("/repos/{id}/file", repoHandler.HandleGetFile)
		r.Post("/repos/{id}/fork", repoHandler.HandleFork)

		r.Post("/repos/{id}/collaborators", collabHandler.HandleAddCollaborator)
		r.Get("/repos/{id}/collaborators", collabHandler.HandleGetCollaborators)
		r.Put("/repos/{id}/star", collabHandler.HandleStar)
		r.Delete("/repos/{id}/star", collabHandler.HandleUnstar)
	})

	return nil
}

// Router exposes the configured router; tests drive it with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// saveSnapshot flattens the store and writes one snapshot. The store lock
// is only held while flattening, between requests, never mid-request.
func (s *Server) saveSnapshot(ctx context.Context) error {
	id, err := s.snaps.Save(ctx, s.store.Snapshot())
	if err != nil {
		return err
	}
	s.logger.Info("snapshot saved", slog.String("id", id))
	return nil
}

// Start runs the HTTP listener and the periodic snapshotter until a
// shutdown signal or a fatal error, then drains in-flight requests,
// writes a final snapshot, and closes the snapshot database.
func (s *Server) Start() error {
	defer s.snaps.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if s.config.SnapshotInterval <= 0 {
			<-gctx.Done()
			return nil
		}
		ticker := time.NewTicker(s.config.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := s.saveSnapshot(gctx); err != nil {
					s.logger.Error("periodic snapshot failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()

	// Final snapshot after the listener has drained — the suspend
	// boundary of the persistence model.
	snapCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if snapErr := s.saveSnapshot(snapCtx); snapErr != nil {
		s.logger.Error("final snapshot failed", slog.String("error", snapErr.Error()))
		if err == nil {
			err = snapErr
		}
	} else {
		s.logger.Info("server stopped gracefully")
	}

	return err
}
