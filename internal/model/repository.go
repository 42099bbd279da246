package model

import (
	"sort"
	"time"
)

// Repository is a named, owned container of path-keyed file entries with
// visibility and social metadata.
//
// The Files map is the live in-memory representation. It never crosses the
// process boundary directly — transport and snapshots use View(), which
// flattens the map to a path-sorted list (see RepoView).
type Repository struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Owner       string                `json:"owner"` // identity, immutable after creation
	IsPrivate   bool                  `json:"isPrivate"`
	License     string                `json:"license,omitempty"`
	Language    string                `json:"language,omitempty"`
	Stars       int                   `json:"stars"`
	Forks       int                   `json:"forks"`
	Size        int64                 `json:"size"` // cumulative content bytes
	Files       map[string]*FileEntry `json:"-"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// FileEntry is one stored file within a repository, keyed by Path.
//
// Hash and Size are always derived from the most recent content write.
// Version is pinned at 1: a re-upload to the same path overwrites the
// entry rather than revising it, so every live entry is its own first
// version. That is the documented contract, not an oversight here.
type FileEntry struct {
	Path          string    `json:"path"`
	Content       []byte    `json:"content"`
	Size          int64     `json:"size"`
	Hash          string    `json:"hash"` // hex-encoded SHA-256 of Content
	Version       int       `json:"version"`
	LastModified  time.Time `json:"lastModified"`
	Author        string    `json:"author"` // identity of the uploader
	CommitMessage string    `json:"commitMessage,omitempty"`
}

// Clone returns a deep copy of the entry. Content is copied, so mutating
// the clone never touches the original — forks depend on this.
func (f *FileEntry) Clone() *FileEntry {
	c := *f
	c.Content = append([]byte(nil), f.Content...)
	return &c
}

// RepoView is the serializable form of a Repository: the same metadata
// with the file map flattened to a path-sorted list. It serves both as
// the transport shape for getRepository and as the snapshot row format.
type RepoView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Owner       string      `json:"owner"`
	IsPrivate   bool        `json:"isPrivate"`
	License     string      `json:"license,omitempty"`
	Language    string      `json:"language,omitempty"`
	Stars       int         `json:"stars"`
	Forks       int         `json:"forks"`
	Size        int64       `json:"size"`
	Files       []FileEntry `json:"files"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// View flattens the repository for transport or snapshotting. File
// contents are copied so the view stays stable after later uploads.
func (r *Repository) View() *RepoView {
	v := &RepoView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		IsPrivate:   r.IsPrivate,
		License:     r.License,
		Language:    r.Language,
		Stars:       r.Stars,
		Forks:       r.Forks,
		Size:        r.Size,
		Files:       make([]FileEntry, 0, len(r.Files)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, f := range r.Files {
		v.Files = append(v.Files, *f.Clone())
	}
	sort.Slice(v.Files, func(i, j int) bool { return v.Files[i].Path < v.Files[j].Path })
	return v
}

// RepoSummary is the listing shape: repository metadata without file
// contents, plus a file count.
type RepoSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner"`
	IsPrivate   bool      `json:"isPrivate"`
	License     string    `json:"license,omitempty"`
	Language    string    `json:"language,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Size        int64     `json:"size"`
	FileCount   int       `json:"fileCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary returns the listing shape for the repository.
func (r *Repository) Summary() RepoSummary {
	return RepoSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		IsPrivate:   r.IsPrivate,
		License:     r.License,
		Language:    r.Language,
		Stars:       r.Stars,
		Forks:       r.Forks,
		Size:        r.Size,
		FileCount:   len(r.Files),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Materialize rebuilds the live Repository from its flattened form.
// Inverse of View; used when restoring a snapshot.
func (v *RepoView) Materialize() *Repository {
	r := &Repository{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Owner:       v.Owner,
		IsPrivate:   v.IsPrivate,
		License:     v.License,
		Language:    v.Language,
		Stars:       v.Stars,
		Forks:       v.Forks,
		Size:        v.Size,
		Files:       make(map[string]*FileEntry, len(v.Files)),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
	for i := range v.Files {
		f := v.Files[i]
		r.Files[f.Path] = f.Clone()
	}
	return r
}
