// Package store owns the live state of the system: users, repositories,
// and the collaboration side-tables, all held in maps behind one mutex.
//
// The single mutex is the concurrency model, not an implementation detail.
// The data model assumes no two mutations of the same repository
// interleave, so every operation acquires the lock for its full duration
// and is atomic with respect to every other operation. There is no
// partial-write visibility and no mid-operation blocking on I/O.
//
// Methods return deep copies. Callers can never reach the live maps, so
// nothing outside this package can mutate state without the lock.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/model"
)

// repoIDPrefix prefixes every allocated repository id. Ids are the prefix
// plus a monotonically increasing counter, e.g. "repo_1", "repo_2".
const repoIDPrefix = "repo_"

// Store holds all tables. Construct with New; the zero value is not usable.
type Store struct {
	mu sync.Mutex

	users         map[string]*model.User            // identity -> user
	usernames     map[string]string                 // username -> identity
	repos         map[string]*model.Repository      // repo id -> repository
	collaborators map[string][]string               // repo id -> identities, insertion order
	stargazers    map[string][]string               // repo id -> identities, insertion order
	links         map[string][]model.LinkedAccount  // identity -> linked accounts
	counter       uint64                            // repository id allocator

	now func() time.Time // injectable clock for tests
}

func New() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		usernames:     make(map[string]string),
		repos:         make(map[string]*model.Repository),
		collaborators: make(map[string][]string),
		stargazers:    make(map[string][]string),
		links:         make(map[string][]model.LinkedAccount),
		now:           time.Now,
	}
}

// nextRepoID allocates a fresh repository id. Caller must hold mu.
func (s *Store) nextRepoID() string {
	s.counter++
	return fmt.Sprintf("%s%d", repoIDPrefix, s.counter)
}

// canRead implements the read rule used everywhere: public repositories
// are readable by anyone, private ones only by their owner. Collaborators
// deliberately get no extra read or write rights — they are metadata only
// (see DESIGN.md).
func canRead(caller string, repo *model.Repository) bool {
	return !repo.IsPrivate || repo.Owner == caller
}

// CreateUser registers a new account. The caller identity and username
// must both be unused; validation of the username/email format happens in
// the service layer before this is called.
func (s *Store) CreateUser(identity, username, email string, profile model.Profile) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[identity]; ok {
		return nil, apperror.Conflict("user", identity)
	}
	if _, ok := s.usernames[username]; ok {
		return nil, apperror.Conflict("username", username)
	}

	now := s.now()
	u := &model.User{
		Identity:  identity,
		Username:  username,
		Email:     email,
		Profile:   profile.Clone(),
		RepoIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[identity] = u
	s.usernames[username] = identity
	return u.Clone(), nil
}

// GetUser returns the user record for an identity. All user records are
// publicly queryable; there is no access restriction here.
func (s *Store) GetUser(identity string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[identity]
	if !ok {
		return nil, apperror.NotFound("user", identity)
	}
	return u.Clone(), nil
}

// UpdateProfile replaces the caller's profile wholesale and bumps
// UpdatedAt. There is no partial merge.
func (s *Store) UpdateProfile(identity string, profile model.Profile) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[identity]
	if !ok {
		return nil, apperror.NotFound("user", identity)
	}
	u.Profile = profile.Clone()
	u.UpdatedAt = s.now()
	return u.Clone(), nil
}
