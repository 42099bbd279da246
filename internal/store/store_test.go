package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shafin/minihub/internal/apperror"
	"github.com/shafin/minihub/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New()
}

func registerTestUser(t *testing.T, s *Store, identity, username string) *model.User {
	t.Helper()
	u, err := s.CreateUser(identity, username, "", model.Profile{})
	if err != nil {
		t.Fatalf("failed to register test user %s: %v", username, err)
	}
	return u
}

func createTestRepo(t *testing.T, s *Store, owner, name string, private bool) *model.RepoView {
	t.Helper()
	repo, err := s.CreateRepo(owner, name, "", private, "")
	if err != nil {
		t.Fatalf("failed to create test repo %s: %v", name, err)
	}
	return repo
}

func uploadTestFile(t *testing.T, s *Store, owner, repoID, path, content string) *model.FileEntry {
	t.Helper()
	entry, err := s.UpsertFile(owner, repoID, &model.FileEntry{
		Path:    path,
		Content: []byte(content),
		Size:    int64(len(content)),
	})
	if err != nil {
		t.Fatalf("failed to upload test file %s: %v", path, err)
	}
	return entry
}

// =========================================================================
// USER TABLE
// =========================================================================

func TestCreateUserConflicts(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "id-1", "alice")

	// Same identity again, different username.
	if _, err := s.CreateUser("id-1", "alice2", "", model.Profile{}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("re-registering identity: error = %v, want ErrConflict", err)
	}
	// Same username, different identity.
	if _, err := s.CreateUser("id-2", "alice", "", model.Profile{}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("taken username: error = %v, want ErrConflict", err)
	}
}

func TestGetUserReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "id-1", "alice")

	u, err := s.GetUser("id-1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	u.Username = "mallory"
	u.RepoIDs = append(u.RepoIDs, "repo_999")

	again, _ := s.GetUser("id-1")
	if again.Username != "alice" || len(again.RepoIDs) != 0 {
		t.Error("mutating a returned user leaked into the store")
	}
}

func TestUpdateProfileReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("id-1", "alice", "", model.Profile{Bio: "old bio", Location: "Oslo"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	updated, err := s.UpdateProfile("id-1", model.Profile{DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Profile.Bio != "" || updated.Profile.Location != "" {
		t.Error("profile update merged instead of replacing wholesale")
	}
	if !updated.UpdatedAt.After(u.UpdatedAt) && !updated.UpdatedAt.Equal(u.UpdatedAt) {
		t.Error("UpdateProfile() did not bump UpdatedAt")
	}

	if _, err := s.UpdateProfile("ghost", model.Profile{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unregistered caller: error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// REPOSITORY TABLE
// =========================================================================

func TestCreateRepoAllocatesMonotonicIDs(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "id-1", "alice")

	for i := 1; i <= 3; i++ {
		repo := createTestRepo(t, s, "id-1", fmt.Sprintf("r%d", i), false)
		want := fmt.Sprintf("repo_%d", i)
		if repo.ID != want {
			t.Errorf("repo id = %q, want %q", repo.ID, want)
		}
	}

	u, _ := s.GetUser("id-1")
	if len(u.RepoIDs) != 3 {
		t.Errorf("owner RepoIDs = %d entries, want 3", len(u.RepoIDs))
	}
}

func TestCreateRepoRequiresRegistration(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateRepo("ghost", "demo", "", false, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("unregistered owner: error = %v, want ErrUnauthorized", err)
	}
}

func TestPrivateRepoVisibility(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "owner", "alice")
	registerTestUser(t, s, "other", "bob")
	repo := createTestRepo(t, s, "owner", "secret", true)
	uploadTestFile(t, s, "owner", repo.ID, "README.md", "hi")

	// Owner reads fine.
	if _, err := s.GetRepo("owner", repo.ID); err != nil {
		t.Errorf("owner GetRepo() error = %v", err)
	}

	// Every read surface yields Forbidden for a non-owner.
	if _, err := s.GetRepo("other", repo.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("GetRepo: error = %v, want ErrForbidden", err)
	}
	if _, err := s.GetFile("other", repo.ID, "README.md"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("GetFile: error = %v, want ErrForbidden", err)
	}
	if _, err := s.ListFiles("other", repo.ID, ""); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("ListFiles: error = %v, want ErrForbidden", err)
	}
	if _, err := s.GetCollaborators("other", repo.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("GetCollaborators: error = %v, want ErrForbidden", err)
	}
}

func TestUpsertFileOverwriteSemantics(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "owner", "alice")
	repo := createTestRepo(t, s, "owner", "demo", false)

	uploadTestFile(t, s, "owner", repo.ID, "a.txt", "first")
	entry := uploadTestFile(t, s, "owner", repo.ID, "a.txt", "second!!")

	// Overwrite keeps version pinned at 1.
	if entry.Version != 1 {
		t.Errorf("version after overwrite = %d, want 1", entry.Version)
	}

	got, err := s.GetFile("owner", repo.ID, "a.txt")
	if err != nil {
		t.Fatalf("GetFile() error = %v", err)
	}
	if string(got.Content) != "second!!" {
		t.Errorf("content = %q, want latest write", got.Content)
	}
	if got.Size != 8 {
		t.Errorf("size = %d, want 8", got.Size)
	}

	// Size nets out the replaced content: 8 bytes, not 5+8.
	view, _ := s.GetRepo("owner", repo.ID)
	if view.Size != 8 {
		t.Errorf("repository size = %d, want 8 (netted)", view.Size)
	}
}

func TestUpsertFileOwnerOnly(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "owner", "alice")
	registerTestUser(t, s, "collab", "bob")
	repo := createTestRepo(t, s, "owner", "demo", false)

	// Even a listed collaborator cannot write; writes are owner-only.
	if err := s.AddCollaborator("owner", repo.ID, "collab"); err != nil {
		t.Fatalf("AddCollaborator() error = %v", err)
	}
	_, err := s.UpsertFile("collab", repo.ID, &model.FileEntry{Path: "x", Content: []byte("x"), Size: 1})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("collaborator write: error = %v, want ErrForbidden", err)
	}
}

func TestListFilesPrefix(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "owner", "alice")
	repo := createTestRepo(t, s, "owner", "demo", false)
	uploadTestFile(t, s, "owner", repo.ID, "src/main.go", "package main")
	uploadTestFile(t, s, "owner", repo.ID, "src/util.go", "package main")
	uploadTestFile(t, s, "owner", repo.ID, "README.md", "hi")

	files, err := s.ListFiles("owner", repo.ID, "src/")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListFiles(src/) = %d entries, want 2", len(files))
	}
	if files[0].Path != "src/main.go" || files[1].Path != "src/util.go" {
		t.Errorf("ListFiles() not path-sorted: %v, %v", files[0].Path, files[1].Path)
	}

	all, _ := s.ListFiles("owner", repo.ID, "")
	if len(all) != 3 {
		t.Errorf("empty prefix matched %d entries, want all 3", len(all))
	}
}

func TestForkIsIndependentDeepCopy(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	src := createTestRepo(t, s, "alice-id", "demo", false)
	uploadTestFile(t, s, "alice-id", src.ID, "README.md", "hi")

	fork, err := s.ForkRepo("bob-id", src.ID, "")
	if err != nil {
		t.Fatalf("ForkRepo() error = %v", err)
	}

	if fork.Owner != "bob-id" {
		t.Errorf("fork owner = %q, want bob-id", fork.Owner)
	}
	if fork.IsPrivate {
		t.Error("fork must always be public")
	}
	if fork.Name != "demo_fork" {
		t.Errorf("fork name = %q, want demo_fork", fork.Name)
	}
	if fork.Stars != 0 || fork.Forks != 0 {
		t.Errorf("fork stars/forks = %d/%d, want 0/0", fork.Stars, fork.Forks)
	}
	if len(fork.Files) != 1 || string(fork.Files[0].Content) != "hi" {
		t.Error("fork did not carry the source's file set")
	}

	srcView, _ := s.GetRepo("alice-id", src.ID)
	if srcView.Forks != 1 {
		t.Errorf("source forks = %d, want 1", srcView.Forks)
	}

	// Mutating either side must not affect the other.
	uploadTestFile(t, s, "bob-id", fork.ID, "README.md", "fork edit")
	srcFile, _ := s.GetFile("alice-id", src.ID, "README.md")
	if string(srcFile.Content) != "hi" {
		t.Error("editing the fork changed the source's file")
	}
	uploadTestFile(t, s, "alice-id", src.ID, "new.txt", "src only")
	if _, err := s.GetFile("bob-id", fork.ID, "new.txt"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("source upload leaked into the fork")
	}
}

func TestForkOfPrivateRepoRequiresReadAccess(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	src := createTestRepo(t, s, "alice-id", "secret", true)

	if _, err := s.ForkRepo("bob-id", src.ID, ""); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("fork of unreadable repo: error = %v, want ErrForbidden", err)
	}
	if _, err := s.ForkRepo("ghost", src.ID, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("fork by unregistered caller: error = %v, want ErrUnauthorized", err)
	}
}

func TestListUserReposVisibilityFilter(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	createTestRepo(t, s, "alice-id", "public1", false)
	createTestRepo(t, s, "alice-id", "hidden", true)
	createTestRepo(t, s, "alice-id", "public2", false)

	// Bob sees only alice's public repositories.
	got, err := s.ListUserRepos("bob-id", "alice")
	if err != nil {
		t.Fatalf("ListUserRepos() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("bob sees %d repos, want 2", len(got))
	}

	// Alice sees all three of her own.
	mine, err := s.ListUserRepos("alice-id", "")
	if err != nil {
		t.Fatalf("ListUserRepos() error = %v", err)
	}
	if len(mine) != 3 {
		t.Errorf("alice sees %d repos, want 3", len(mine))
	}

	if _, err := s.ListUserRepos("bob-id", "nosuchuser"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown username: error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// COLLABORATION LEDGER
// =========================================================================

func TestStarUnstarKeepsCountInSync(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	repo := createTestRepo(t, s, "alice-id", "demo", false)

	count, err := s.Star("bob-id", repo.ID)
	if err != nil {
		t.Fatalf("Star() error = %v", err)
	}
	if count != 1 {
		t.Errorf("star count = %d, want 1", count)
	}

	// Double star conflicts.
	if _, err := s.Star("bob-id", repo.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("double star: error = %v, want ErrConflict", err)
	}

	// Unstar by a non-stargazer is NotFound.
	if _, err := s.Unstar("alice-id", repo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unstar by non-stargazer: error = %v, want ErrNotFound", err)
	}

	count, err = s.Unstar("bob-id", repo.ID)
	if err != nil {
		t.Fatalf("Unstar() error = %v", err)
	}
	if count != 0 {
		t.Errorf("star count after unstar = %d, want 0", count)
	}

	view, _ := s.GetRepo("alice-id", repo.ID)
	if view.Stars != 0 {
		t.Errorf("repository star counter = %d, want 0", view.Stars)
	}
}

func TestAddCollaborator(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	registerTestUser(t, s, "carol-id", "carol")
	repo := createTestRepo(t, s, "alice-id", "demo", false)

	if err := s.AddCollaborator("bob-id", repo.ID, "carol-id"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-owner add: error = %v, want ErrForbidden", err)
	}
	if err := s.AddCollaborator("alice-id", repo.ID, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unregistered collaborator: error = %v, want ErrNotFound", err)
	}
	if err := s.AddCollaborator("alice-id", repo.ID, "bob-id"); err != nil {
		t.Fatalf("AddCollaborator() error = %v", err)
	}
	if err := s.AddCollaborator("alice-id", repo.ID, "bob-id"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate collaborator: error = %v, want ErrConflict", err)
	}

	list, err := s.GetCollaborators("bob-id", repo.ID)
	if err != nil {
		t.Fatalf("GetCollaborators() error = %v", err)
	}
	if len(list) != 1 || list[0] != "bob-id" {
		t.Errorf("collaborators = %v, want [bob-id]", list)
	}
}

func TestLinkedAccountsAppendWithoutDedup(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")

	if _, err := s.LinkAccount("ghost", "github", "g1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unregistered caller: error = %v, want ErrNotFound", err)
	}

	// Duplicates are permitted.
	for i := 0; i < 2; i++ {
		if _, err := s.LinkAccount("alice-id", "github", "alice-gh"); err != nil {
			t.Fatalf("LinkAccount() error = %v", err)
		}
	}
	links, err := s.GetLinks("alice-id")
	if err != nil {
		t.Fatalf("GetLinks() error = %v", err)
	}
	if len(links) != 2 {
		t.Errorf("links = %d, want 2 (no dedup)", len(links))
	}
}

// =========================================================================
// SNAPSHOT / RESTORE
// =========================================================================

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	repo := createTestRepo(t, s, "alice-id", "demo", false)
	uploadTestFile(t, s, "alice-id", repo.ID, "README.md", "hi")
	if _, err := s.Star("bob-id", repo.ID); err != nil {
		t.Fatalf("Star() error = %v", err)
	}
	if err := s.AddCollaborator("alice-id", repo.ID, "bob-id"); err != nil {
		t.Fatalf("AddCollaborator() error = %v", err)
	}
	if _, err := s.LinkAccount("alice-id", "github", "alice-gh"); err != nil {
		t.Fatalf("LinkAccount() error = %v", err)
	}

	snap := s.Snapshot()

	restored := New()
	restored.Restore(snap)

	// The id counter survives: the next repo id continues the sequence.
	next := createTestRepo(t, restored, "bob-id", "after", false)
	if next.ID != "repo_2" {
		t.Errorf("next repo id after restore = %q, want repo_2", next.ID)
	}

	got, err := restored.GetFile("bob-id", repo.ID, "README.md")
	if err != nil {
		t.Fatalf("GetFile() after restore error = %v", err)
	}
	if string(got.Content) != "hi" {
		t.Errorf("restored content = %q, want %q", got.Content, "hi")
	}

	view, _ := restored.GetRepo("alice-id", repo.ID)
	if view.Stars != 1 {
		t.Errorf("restored star count = %d, want 1", view.Stars)
	}
	// Double star still conflicts — the stargazer list survived too.
	if _, err := restored.Star("bob-id", repo.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("star after restore: error = %v, want ErrConflict", err)
	}

	collabs, _ := restored.GetCollaborators("alice-id", repo.ID)
	if len(collabs) != 1 || collabs[0] != "bob-id" {
		t.Errorf("restored collaborators = %v, want [bob-id]", collabs)
	}
	links, _ := restored.GetLinks("alice-id")
	if len(links) != 1 {
		t.Errorf("restored links = %d, want 1", len(links))
	}
	// Username index rebuilt: taken name still conflicts.
	if _, err := restored.CreateUser("new-id", "alice", "", model.Profile{}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("username after restore: error = %v, want ErrConflict", err)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	registerTestUser(t, s, "alice-id", "alice")
	registerTestUser(t, s, "bob-id", "bob")
	repo := createTestRepo(t, s, "alice-id", "demo", false)
	uploadTestFile(t, s, "alice-id", repo.ID, "README.md", "hi")
	if _, err := s.Star("bob-id", repo.ID); err != nil {
		t.Fatalf("Star() error = %v", err)
	}

	st := s.Stats()
	if st.Users != 2 || st.Repositories != 1 || st.Files != 1 {
		t.Errorf("stats = %+v, want 2 users / 1 repo / 1 file", st)
	}
	if st.ContentBytes != 2 {
		t.Errorf("content bytes = %d, want 2", st.ContentBytes)
	}
	if st.Stars != 1 {
		t.Errorf("stars = %d, want 1", st.Stars)
	}
}
