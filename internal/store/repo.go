package store

import (
	"sort"
	"strings"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/model"
)

// CreateRepo allocates a fresh repository for the owner and appends its id
// to the owner's repository list. The owner must be registered.
func (s *Store) CreateRepo(owner, name, description string, isPrivate bool, license string) (*model.RepoView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[owner]
	if !ok {
		return nil, apperror.Unauthorized("caller must be registered to create a repository")
	}

	now := s.now()
	repo := &model.Repository{
		ID:          s.nextRepoID(),
		Name:        name,
		Description: description,
		Owner:       owner,
		IsPrivate:   isPrivate,
		License:     license,
		Files:       make(map[string]*model.FileEntry),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.repos[repo.ID] = repo
	u.RepoIDs = append(u.RepoIDs, repo.ID)
	u.UpdatedAt = now
	return repo.View(), nil
}

// GetRepo returns a transport snapshot of a repository, with the file map
// flattened to a path-sorted list.
func (s *Store) GetRepo(caller, id string) (*model.RepoView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[id]
	if !ok {
		return nil, apperror.NotFound("repository", id)
	}
	if !canRead(caller, repo) {
		return nil, apperror.Forbidden("repository is private")
	}
	return repo.View(), nil
}

// UpsertFile writes a file entry into the repository's file map. A write
// to an existing path overwrites the entry; version stays 1 either way.
//
// The repository size is kept net: replacing a path subtracts the old
// content's bytes before adding the new content's. Writes are owner-only.
func (s *Store) UpsertFile(caller, repoID string, entry *model.FileEntry) (*model.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return nil, apperror.NotFound("repository", repoID)
	}
	if repo.Owner != caller {
		return nil, apperror.Forbidden("only the repository owner may upload files")
	}

	stored := entry.Clone()
	stored.Version = 1
	stored.Author = caller
	stored.LastModified = s.now()

	if prev, ok := repo.Files[stored.Path]; ok {
		repo.Size -= prev.Size
	}
	repo.Files[stored.Path] = stored
	repo.Size += stored.Size
	repo.UpdatedAt = stored.LastModified

	return stored.Clone(), nil
}

// GetFile returns a single file entry, visibility-gated like any read.
func (s *Store) GetFile(caller, repoID, path string) (*model.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return nil, apperror.NotFound("repository", repoID)
	}
	if !canRead(caller, repo) {
		return nil, apperror.Forbidden("repository is private")
	}
	f, ok := repo.Files[path]
	if !ok {
		return nil, apperror.NotFound("file", path)
	}
	return f.Clone(), nil
}

// ListFiles returns every file entry whose path starts with prefix, sorted
// by path. The empty prefix matches everything.
func (s *Store) ListFiles(caller, repoID, prefix string) ([]model.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, ok := s.repos[repoID]
	if !ok {
		return nil, apperror.NotFound("repository", repoID)
	}
	if !canRead(caller, repo) {
		return nil, apperror.Forbidden("repository is private")
	}

	files := make([]model.FileEntry, 0, len(repo.Files))
	for path, f := range repo.Files {
		if strings.HasPrefix(path, prefix) {
			files = append(files, *f.Clone())
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ForkRepo creates an independent copy of a readable repository, owned by
// the caller. The fork is always public regardless of the source's
// visibility, carries a deep copy of the file map plus the source's
// language and size, and starts with zero stars and forks. The source's
// fork counter increments.
//
// newName may be empty, in which case the fork is named "<source>_fork".
// The name is validated here because the default depends on the source.
func (s *Store) ForkRepo(caller, srcID, newName string) (*model.RepoView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[caller]
	if !ok {
		return nil, apperror.Unauthorized("caller must be registered to fork a repository")
	}
	src, ok := s.repos[srcID]
	if !ok {
		return nil, apperror.NotFound("repository", srcID)
	}
	if !canRead(caller, src) {
		return nil, apperror.Forbidden("repository is private")
	}

	name := newName
	if name == "" {
		name = src.Name + "_fork"
	}
	if err := model.ValidateRepoName(name); err != nil {
		return nil, err
	}

	now := s.now()
	fork := &model.Repository{
		ID:        s.nextRepoID(),
		Name:      name,
		Owner:     caller,
		IsPrivate: false,
		Language:  src.Language,
		Size:      src.Size,
		Files:     make(map[string]*model.FileEntry, len(src.Files)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for path, f := range src.Files {
		fork.Files[path] = f.Clone()
	}

	s.repos[fork.ID] = fork
	src.Forks++
	u.RepoIDs = append(u.RepoIDs, fork.ID)
	u.UpdatedAt = now
	return fork.View(), nil
}

// ListUserRepos resolves the target user (by username, or the caller when
// username is empty) and returns summaries of the target's repositories
// that the caller may read, in the order the target created them.
// Pagination is applied by the service on top of this.
func (s *Store) ListUserRepos(caller, username string) ([]model.RepoSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := caller
	if username != "" {
		identity, ok := s.usernames[username]
		if !ok {
			return nil, apperror.NotFound("user", username)
		}
		target = identity
	}
	u, ok := s.users[target]
	if !ok {
		return nil, apperror.NotFound("user", target)
	}

	summaries := make([]model.RepoSummary, 0, len(u.RepoIDs))
	for _, id := range u.RepoIDs {
		repo, ok := s.repos[id]
		if !ok || !canRead(caller, repo) {
			continue
		}
		summaries = append(summaries, repo.Summary())
	}
	return summaries, nil
}
