package store

import (
	"sort"

	"github.com/shafin/minihub/internal/model"
)

// Snapshot is the flat, serializable form of the whole store: every table
// flattened to an ordered list so the persistence adapter can write it as
// key-value rows and rehydrate the maps on restart.
//
// Ordering is deterministic (users by identity, repositories by id, and
// so on) so two snapshots of the same state are byte-identical.
type Snapshot struct {
	Counter       uint64                `json:"counter"`
	Users         []model.User          `json:"users"`
	Usernames     []UsernameRow         `json:"usernames"`
	Repos         []model.RepoView      `json:"repos"`
	Collaborators []MemberRow           `json:"collaborators"`
	Stargazers    []MemberRow           `json:"stargazers"`
	Links         []LinkRow             `json:"links"`
}

// UsernameRow is one entry of the username index table.
type UsernameRow struct {
	Username string `json:"username"`
	Identity string `json:"identity"`
}

// MemberRow keys an ordered identity list by repository id. Used for both
// the collaborator and stargazer tables.
type MemberRow struct {
	RepoID     string   `json:"repoId"`
	Identities []string `json:"identities"`
}

// LinkRow keys a user's external account links by identity.
type LinkRow struct {
	Identity string                `json:"identity"`
	Accounts []model.LinkedAccount `json:"accounts"`
}

// Snapshot flattens the current state. It holds the store lock for the
// duration, so it only runs between operations, never mid-request.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Counter:       s.counter,
		Users:         make([]model.User, 0, len(s.users)),
		Usernames:     make([]UsernameRow, 0, len(s.usernames)),
		Repos:         make([]model.RepoView, 0, len(s.repos)),
		Collaborators: memberRows(s.collaborators),
		Stargazers:    memberRows(s.stargazers),
		Links:         make([]LinkRow, 0, len(s.links)),
	}

	for _, u := range s.users {
		snap.Users = append(snap.Users, *u.Clone())
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].Identity < snap.Users[j].Identity })

	for username, identity := range s.usernames {
		snap.Usernames = append(snap.Usernames, UsernameRow{Username: username, Identity: identity})
	}
	sort.Slice(snap.Usernames, func(i, j int) bool { return snap.Usernames[i].Username < snap.Usernames[j].Username })

	for _, r := range s.repos {
		snap.Repos = append(snap.Repos, *r.View())
	}
	sort.Slice(snap.Repos, func(i, j int) bool { return snap.Repos[i].ID < snap.Repos[j].ID })

	for identity, accounts := range s.links {
		snap.Links = append(snap.Links, LinkRow{
			Identity: identity,
			Accounts: append([]model.LinkedAccount{}, accounts...),
		})
	}
	sort.Slice(snap.Links, func(i, j int) bool { return snap.Links[i].Identity < snap.Links[j].Identity })

	return snap
}

func memberRows(table map[string][]string) []MemberRow {
	rows := make([]MemberRow, 0, len(table))
	for repoID, ids := range table {
		rows = append(rows, MemberRow{
			RepoID:     repoID,
			Identities: append([]string{}, ids...),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RepoID < rows[j].RepoID })
	return rows
}

// Restore replaces the store's state with the snapshot's. Called once at
// startup, before the store is reachable from any handler.
func (s *Store) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter = snap.Counter

	s.users = make(map[string]*model.User, len(snap.Users))
	for i := range snap.Users {
		u := snap.Users[i]
		s.users[u.Identity] = u.Clone()
	}

	s.usernames = make(map[string]string, len(snap.Usernames))
	for _, row := range snap.Usernames {
		s.usernames[row.Username] = row.Identity
	}

	s.repos = make(map[string]*model.Repository, len(snap.Repos))
	for i := range snap.Repos {
		v := snap.Repos[i]
		s.repos[v.ID] = v.Materialize()
	}

	s.collaborators = memberTable(snap.Collaborators)
	s.stargazers = memberTable(snap.Stargazers)

	s.links = make(map[string][]model.LinkedAccount, len(snap.Links))
	for _, row := range snap.Links {
		s.links[row.Identity] = append([]model.LinkedAccount{}, row.Accounts...)
	}
}

func memberTable(rows []MemberRow) map[string][]string {
	table := make(map[string][]string, len(rows))
	for _, row := range rows {
		table[row.RepoID] = append([]string{}, row.Identities...)
	}
	return table
}

// Stats is the fixed-shape record behind the diagnostics probe.
type Stats struct {
	Users        int    `json:"users"`
	Repositories int    `json:"repositories"`
	Files        int    `json:"files"`
	ContentBytes int64  `json:"contentBytes"`
	Stars        int    `json:"stars"`
	Forks        int    `json:"forks"`
	Links        int    `json:"links"`
	Counter      uint64 `json:"counter"`
}

// Stats aggregates table sizes for the diagnostics probe.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Users:        len(s.users),
		Repositories: len(s.repos),
		Counter:      s.counter,
	}
	for _, r := range s.repos {
		st.Files += len(r.Files)
		st.ContentBytes += r.Size
		st.Forks += r.Forks
	}
	for _, gazers := range s.stargazers {
		st.Stars += len(gazers)
	}
	for _, accounts := range s.links {
		st.Links += len(accounts)
	}
	return st
}
