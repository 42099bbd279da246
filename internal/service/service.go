// Package service contains the business logic layer: input validation,
// content hashing, the rate-limit gate, and pagination sit here, while
// everything state-dependent (permission checks included, since they need
// the tables) is delegated to the store and runs under its lock.
//
// Services accept primitives and return domain types and apperror values;
// they know nothing about HTTP. The dependency chain is the usual one:
//
//	store.Store → service → handler
package service

import (
	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/ratelimit"
)

// Pagination bounds for listUserRepositories.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// rateGate admits or rejects a mutating call for the identity. Every
// mutating operation in every service passes through here before touching
// the store; reads are never limited.
func rateGate(limiter *ratelimit.Limiter, identity string) error {
	if !limiter.Allow(identity) {
		return apperror.RateLimited("too many actions, retry after the window elapses")
	}
	return nil
}
