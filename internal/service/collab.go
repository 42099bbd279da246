package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/ratelimit"
	"github.com/shafin/minihub/internal/store"
)

// CollabService implements the collaboration ledger operations:
// collaborators and stars. External account links live on UserService,
// next to the rest of the per-user surface.
type CollabService struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewCollabService(st *store.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *CollabService {
	return &CollabService{
		store:   st,
		limiter: limiter,
		logger:  logger,
	}
}

// AddCollaborator lists an identity as collaborator. Owner-only; the
// identity gains no read or write permission from being listed.
func (s *CollabService) AddCollaborator(ctx context.Context, caller, repoID, collaborator string) error {
	if err := rateGate(s.limiter, caller); err != nil {
		return err
	}

	collaborator = strings.TrimSpace(collaborator)
	if collaborator == "" {
		return apperror.ValidationFailed("collaborator", "collaborator identity is required")
	}
	if err := s.store.AddCollaborator(caller, repoID, collaborator); err != nil {
		return err
	}

	s.logger.Info("collaborator added",
		slog.String("repo", repoID),
		slog.String("collaborator", collaborator),
	)
	return nil
}

// Collaborators returns the recorded collaborator identities, empty list
// included.
func (s *CollabService) Collaborators(ctx context.Context, caller, repoID string) ([]string, error) {
	return s.store.GetCollaborators(caller, repoID)
}

// Star adds the caller to the stargazer list and returns the new count.
func (s *CollabService) Star(ctx context.Context, caller, repoID string) (int, error) {
	if err := rateGate(s.limiter, caller); err != nil {
		return 0, err
	}

	count, err := s.store.Star(caller, repoID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("repository starred",
		slog.String("repo", repoID),
		slog.Int("stars", count),
	)
	return count, nil
}

// Unstar removes the caller from the stargazer list and returns the new
// count.
func (s *CollabService) Unstar(ctx context.Context, caller, repoID string) (int, error) {
	if err := rateGate(s.limiter, caller); err != nil {
		return 0, err
	}

	count, err := s.store.Unstar(caller, repoID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("repository unstarred",
		slog.String("repo", repoID),
		slog.Int("stars", count),
	)
	return count, nil
}
