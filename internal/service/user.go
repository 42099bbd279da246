package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/model"
	"github.com/shafin/minihub/internal/ratelimit"
	"github.com/shafin/minihub/internal/store"
)

// UserService implements the identity registry operations plus external
// account linking.
type UserService struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewUserService(st *store.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *UserService {
	return &UserService{
		store:   st,
		limiter: limiter,
		logger:  logger,
	}
}

// Register creates a user record for the caller identity. The identity
// must be fresh, the username unused and 3-20 characters, and the email —
// when present — well-formed.
func (s *UserService) Register(ctx context.Context, identity, username, email string, profile model.Profile) (*model.User, error) {
	if err := rateGate(s.limiter, identity); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}
	if email != "" {
		if err := model.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	u, err := s.store.CreateUser(identity, username, email, profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("identity", identity),
		slog.String("username", username),
	)
	return u, nil
}

// Get returns any user record by identity. User records are publicly
// queryable, so there is no caller check here.
func (s *UserService) Get(ctx context.Context, identity string) (*model.User, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, apperror.ValidationFailed("identity", "identity is required")
	}
	return s.store.GetUser(identity)
}

// UpdateProfile replaces the caller's profile wholesale.
func (s *UserService) UpdateProfile(ctx context.Context, identity string, profile model.Profile) (*model.User, error) {
	if err := rateGate(s.limiter, identity); err != nil {
		return nil, err
	}

	u, err := s.store.UpdateProfile(identity, profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("identity", identity))
	return u, nil
}

// LinkAccount records an external (platform, account id) pair for the
// caller. Pairs are appended as-is; linking the same account twice yields
// two entries.
func (s *UserService) LinkAccount(ctx context.Context, identity, platform, accountID string) (model.LinkedAccount, error) {
	if err := rateGate(s.limiter, identity); err != nil {
		return model.LinkedAccount{}, err
	}

	platform = strings.TrimSpace(platform)
	accountID = strings.TrimSpace(accountID)
	if platform == "" {
		return model.LinkedAccount{}, apperror.ValidationFailed("platform", "platform is required")
	}
	if accountID == "" {
		return model.LinkedAccount{}, apperror.ValidationFailed("accountId", "account id is required")
	}

	link, err := s.store.LinkAccount(identity, platform, accountID)
	if err != nil {
		return model.LinkedAccount{}, err
	}

	s.logger.Info("external account linked",
		slog.String("identity", identity),
		slog.String("platform", platform),
	)
	return link, nil
}

// LinkedAccounts returns the caller's own links only.
func (s *UserService) LinkedAccounts(ctx context.Context, identity string) ([]model.LinkedAccount, error) {
	return s.store.GetLinks(identity)
}
