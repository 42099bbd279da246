package store

import (
	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/model"
)

// AddCollaborator records an identity as collaborator on a repository.
// Only the owner may add; the identity must be a registered user and not
// already listed. Collaborator lists keep insertion order.
func (s *Store) AddCollaborator(caller, repoID, collaborator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return apperror.NotFound("repository", repoID)
	}
	if repo.Owner != caller {
		return apperror.Forbidden("only the repository owner may add collaborators")
	}
	if _, ok := s.users[collaborator]; !ok {
		return apperror.NotFound("user", collaborator)
	}
	for _, id := range s.collaborators[repoID] {
		if id == collaborator {
			return apperror.Conflict("collaborator", collaborator)
		}
	}
	s.collaborators[repoID] = append(s.collaborators[repoID], collaborator)
	return nil
}

// GetCollaborators returns the collaborator list, visibility-gated like
// file reads. Repositories with no recorded collaborators yield an empty
// list, not an error.
func (s *Store) GetCollaborators(caller, repoID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return nil, apperror.NotFound("repository", repoID)
	}
	if !canRead(caller, repo) {
		return nil, apperror.Forbidden("repository is private")
	}
	return append([]string{}, s.collaborators[repoID]...), nil
}

// Star adds the caller to the repository's stargazer list and syncs the
// star counter with the list's cardinality in the same critical section.
func (s *Store) Star(caller, repoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return 0, apperror.NotFound("repository", repoID)
	}
	if !canRead(caller, repo) {
		return 0, apperror.Forbidden("repository is private")
	}
	for _, id := range s.stargazers[repoID] {
		if id == caller {
			return 0, apperror.Conflict("star", repoID)
		}
	}
	s.stargazers[repoID] = append(s.stargazers[repoID], caller)
	repo.Stars = len(s.stargazers[repoID])
	return repo.Stars, nil
}

// Unstar removes the caller from the stargazer list. A caller who is not
// currently a stargazer gets NotFound, which also prevents double-unstar.
func (s *Store) Unstar(caller, repoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return 0, apperror.NotFound("repository", repoID)
	}
	if !canRead(caller, repo) {
		return 0, apperror.Forbidden("repository is private")
	}

	gazers := s.stargazers[repoID]
	idx := -1
	for i, id := range gazers {
		if id == caller {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, apperror.NotFound("star", repoID)
	}
	s.stargazers[repoID] = append(gazers[:idx], gazers[idx+1:]...)
	repo.Stars = len(s.stargazers[repoID])
	return repo.Stars, nil
}

// LinkAccount appends an external account link for a registered caller.
// Links are append-only and deliberately not deduplicated.
func (s *Store) LinkAccount(caller, platform, accountID string) (model.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[caller]; !ok {
		return model.LinkedAccount{}, apperror.NotFound("user", caller)
	}
	link := model.LinkedAccount{
		Platform:  platform,
		AccountID: accountID,
		LinkedAt:  s.now(),
	}
	s.links[caller] = append(s.links[caller], link)
	return link, nil
}

// GetLinks returns the caller's own linked accounts. There is no
// cross-user query.
func (s *Store) GetLinks(caller string) ([]model.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[caller]; !ok {
		return nil, apperror.NotFound("user", caller)
	}
	return append([]model.LinkedAccount{}, s.links[caller]...), nil
}
