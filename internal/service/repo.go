package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/model"
	"github.com/shafin/minihub/internal/ratelimit"
	"github.com/shafin/minihub/internal/store"
)

// RepoService implements the repository store operations.
type RepoService struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

func NewRepoService(st *store.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *RepoService {
	return &RepoService{
		store:   st,
		limiter: limiter,
		logger:  logger,
	}
}

// ListFilesResult is the listFiles response shape: matching entries, their
// count, and the effective prefix that was applied.
type ListFilesResult struct {
	Files  []model.FileEntry `json:"files"`
	Count  int               `json:"count"`
	Prefix string            `json:"prefix"`
}

// ListReposResult is the listUserRepositories response shape. Total is the
// pre-pagination, post-visibility-filter count.
type ListReposResult struct {
	Items   []model.RepoSummary `json:"items"`
	Total   int                 `json:"total"`
	HasMore bool                `json:"hasMore"`
}

// Create validates and stores a new repository for the caller.
func (s *RepoService) Create(ctx context.Context, caller, name, description string, isPrivate bool, license string) (*model.RepoView, error) {
	if err := rateGate(s.limiter, caller); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if err := model.ValidateRepoName(name); err != nil {
		return nil, err
	}
	if err := model.ValidateDescription(description); err != nil {
		return nil, err
	}

	repo, err := s.store.CreateRepo(caller, name, description, isPrivate, license)
	if err != nil {
		return nil, err
	}

	s.logger.Info("repository created",
		slog.String("id", repo.ID),
		slog.String("name", repo.Name),
		slog.String("owner", caller),
		slog.Bool("private", isPrivate),
	)
	return repo, nil
}

// Get returns a repository snapshot, subject to the visibility rule.
func (s *RepoService) Get(ctx context.Context, caller, id string) (*model.RepoView, error) {
	return s.store.GetRepo(caller, id)
}

// UploadFile validates the path and content, hashes the content, and
// upserts the entry. The hash is SHA-256 over the raw bytes.
func (s *RepoService) UploadFile(ctx context.Context, caller, repoID, path string, content []byte, commitMessage string) (*model.FileEntry, error) {
	if err := rateGate(s.limiter, caller); err != nil {
		return nil, err
	}

	if err := model.ValidateFilePath(path); err != nil {
		return nil, err
	}
	if len(content) > model.MaxFileSize {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("file content must be %d bytes or less", model.MaxFileSize))
	}

	sum := sha256.Sum256(content)
	entry, err := s.store.UpsertFile(caller, repoID, &model.FileEntry{
		Path:          path,
		Content:       content,
		Size:          int64(len(content)),
		Hash:          hex.EncodeToString(sum[:]),
		CommitMessage: commitMessage,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file uploaded",
		slog.String("repo", repoID),
		slog.String("path", path),
		slog.Int64("size", entry.Size),
	)
	return entry, nil
}

// GetFile returns a single file entry, subject to the visibility rule.
func (s *RepoService) GetFile(ctx context.Context, caller, repoID, path string) (*model.FileEntry, error) {
	if path == "" {
		return nil, apperror.ValidationFailed("path", "file path is required")
	}
	return s.store.GetFile(caller, repoID, path)
}

// ListFiles returns all entries under the given prefix. The empty prefix
// matches every file in the repository.
func (s *RepoService) ListFiles(ctx context.Context, caller, repoID, prefix string) (*ListFilesResult, error) {
	files, err := s.store.ListFiles(caller, repoID, prefix)
	if err != nil {
		return nil, err
	}
	return &ListFilesResult{
		Files:  files,
		Count:  len(files),
		Prefix: prefix,
	}, nil
}

// Fork creates an independent public copy of a readable repository. An
// empty newName defaults to "<source>_fork" (the store applies and
// validates the default, since it depends on the source's name).
func (s *RepoService) Fork(ctx context.Context, caller, srcID, newName string) (*model.RepoView, error) {
	if err := rateGate(s.limiter, caller); err != nil {
		return nil, err
	}

	fork, err := s.store.ForkRepo(caller, srcID, strings.TrimSpace(newName))
	if err != nil {
		return nil, err
	}

	s.logger.Info("repository forked",
		slog.String("source", srcID),
		slog.String("fork", fork.ID),
		slog.String("owner", caller),
	)
	return fork, nil
}

// ListForUser lists repositories of the target user (by username, or the
// caller when username is empty) that the caller may read, with a
// zero-indexed page × limit window. An out-of-range page yields an empty
// slice, not an error.
func (s *RepoService) ListForUser(ctx context.Context, caller, username string, page, limit int) (*ListReposResult, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	all, err := s.store.ListUserRepos(caller, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	total := len(all)
	start := page * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &ListReposResult{
		Items:   all[start:end],
		Total:   total,
		HasMore: end < total,
	}, nil
}
