// Package model defines the data structures used throughout the application.
package model

import "time"

// Profile is the free-form part of a user account. Updates replace it
// wholesale; there is no partial merge.
type Profile struct {
	DisplayName   string   `json:"displayName"`
	Bio           string   `json:"bio"`
	Avatar        []byte   `json:"avatar,omitempty"`
	Location      string   `json:"location"`
	Website       string   `json:"website"`
	SocialLinks   []string `json:"socialLinks,omitempty"`
	ExternalLinks []string `json:"externalLinks,omitempty"`
	Skills        []string `json:"skills,omitempty"`
}

// User represents a registered account.
//
// Identity is the opaque caller identifier supplied by the external
// authentication boundary (the JWT subject in our HTTP layer). It is the
// primary key for the user table and immutable for the life of the record.
// Username is the human-facing handle, unique across the system.
//
// RepoIDs lists every repository the user owns, in creation order —
// createRepository and forkRepository append to it; nothing removes from
// it in the current scope.
type User struct {
	Identity  string    `json:"identity"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"` // optional, validated when present
	Profile   Profile   `json:"profile"`
	RepoIDs   []string  `json:"repoIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the user; mutating the clone never touches
// the stored record.
func (u *User) Clone() *User {
	c := *u
	c.RepoIDs = append([]string(nil), u.RepoIDs...)
	c.Profile = u.Profile.Clone()
	return &c
}

// Clone deep-copies the profile's slices.
func (p Profile) Clone() Profile {
	c := p
	c.Avatar = append([]byte(nil), p.Avatar...)
	c.SocialLinks = append([]string(nil), p.SocialLinks...)
	c.ExternalLinks = append([]string(nil), p.ExternalLinks...)
	c.Skills = append([]string(nil), p.Skills...)
	return c
}

// LinkedAccount ties a user to an account on an external platform.
// Duplicates are permitted — the ledger does not dedup links.
type LinkedAccount struct {
	Platform  string    `json:"platform"`
	AccountID string    `json:"accountId"`
	LinkedAt  time.Time `json:"linkedAt"`
}
